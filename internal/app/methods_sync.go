package app

import (
	"fmt"
	"strings"

	"DRFashion-Sync/internal/connection"
	"DRFashion-Sync/internal/logger"
	"DRFashion-Sync/internal/sync"
)

const (
	ModeUpsert    = "upsert"
	ModeReconcile = "reconcile"

	DirectionBoth = "both"
)

// DataSync runs one sync. mode is upsert or reconcile; direction applies to
// upsert only and is local-to-online, online-to-local or both.
func (a *App) DataSync(mode, direction string) (sync.SyncResult, error) {
	engine := a.engine()
	mode = strings.ToLower(strings.TrimSpace(mode))
	logger.Infof("开始数据同步：模式=%s 方向=%s 本地=%s 线上=%s", mode, direction, formatConnSummary(a.settings.Local), formatConnSummary(a.settings.Online))

	switch mode {
	case ModeReconcile:
		return engine.SyncBothDirectionsReconciled(a.ctx)
	case ModeUpsert, "":
		if strings.EqualFold(strings.TrimSpace(direction), DirectionBoth) {
			return engine.SyncBothDirections(a.ctx)
		}
		dir, err := sync.ParseDirection(direction)
		if err != nil {
			return sync.SyncResult{Strategy: sync.StrategyUpsert, Message: err.Error()}, err
		}
		return engine.SyncOneDirection(a.ctx, dir)
	default:
		err := fmt.Errorf("未知同步模式 %q", mode)
		return sync.SyncResult{Message: err.Error()}, err
	}
}

// DataSyncAnalyze counts pending inserts and updates per table (dry-run).
func (a *App) DataSyncAnalyze() connection.QueryResult {
	res, err := a.engine().Analyze(a.ctx)
	if err != nil {
		return connection.QueryResult{Success: false, Message: err.Error(), Data: res}
	}
	return connection.QueryResult{Success: res.Success, Message: res.Message, Data: res}
}
