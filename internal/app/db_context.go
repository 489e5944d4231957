package app

import (
	"context"
	"fmt"
	"strings"

	"DRFashion-Sync/internal/connection"
	"DRFashion-Sync/internal/db"
	"DRFashion-Sync/internal/logger"
)

// GetLocal opens a fresh session to the local database. The caller closes it.
func (a *App) GetLocal(ctx context.Context) (db.Database, error) {
	return a.connect(ctx, "本地", a.settings.Local)
}

// GetOnline opens a fresh session to the online database. The caller closes it.
func (a *App) GetOnline(ctx context.Context) (db.Database, error) {
	return a.connect(ctx, "线上", a.settings.Online)
}

// GetPreferred tries the online database first and falls back to the local
// one. Only a local failure is returned.
func (a *App) GetPreferred(ctx context.Context) (db.Database, error) {
	online, err := a.GetOnline(ctx)
	if err == nil {
		return online, nil
	}
	logger.Warnf("线上数据库不可用，改用本地数据库：%v", err)
	return a.GetLocal(ctx)
}

func (a *App) connect(ctx context.Context, label string, config connection.ConnectionConfig) (db.Database, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dbInst, err := db.NewDatabase(config.Type)
	if err != nil {
		return nil, err
	}
	if err := dbInst.Connect(config); err != nil {
		logger.Error(err, "%s数据库连接失败：%s", label, formatConnSummary(config))
		return nil, err
	}
	logger.Infof("%s数据库连接成功：%s", label, formatConnSummary(config))
	return dbInst, nil
}

func formatConnSummary(config connection.ConnectionConfig) string {
	dbType := strings.TrimSpace(config.Type)
	if dbType == "" {
		dbType = "mysql"
	}
	if strings.EqualFold(dbType, "sqlite") || strings.EqualFold(dbType, "sqlite3") {
		return fmt.Sprintf("类型=%s 文件=%s", dbType, config.Host)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "类型=%s 地址=%s:%d", dbType, config.Host, config.Port)
	if config.Database != "" {
		fmt.Fprintf(&b, " 数据库=%s", config.Database)
	}
	if config.User != "" {
		fmt.Fprintf(&b, " 用户=%s", config.User)
	}
	if config.UseSSH {
		fmt.Fprintf(&b, " SSH=%s:%d", config.SSH.Host, config.SSH.Port)
	}
	return b.String()
}
