package app

import (
	"DRFashion-Sync/internal/connection"
)

// TestConnection opens and closes both databases and reports each result.
func (a *App) TestConnection() connection.QueryResult {
	status := map[string]string{}
	ok := true
	for _, side := range []struct {
		name   string
		label  string
		config connection.ConnectionConfig
	}{
		{"local", "本地", a.settings.Local},
		{"online", "线上", a.settings.Online},
	} {
		dbInst, err := a.connect(a.ctx, side.label, side.config)
		if err != nil {
			status[side.name] = err.Error()
			ok = false
			continue
		}
		status[side.name] = dbInst.Identity()
		_ = dbInst.Close()
	}

	if !ok {
		return connection.QueryResult{Success: false, Message: "连接失败", Data: status}
	}
	return connection.QueryResult{Success: true, Message: "连接成功", Data: status}
}

// PreferredConnection reports which database a single-connection task would
// use right now.
func (a *App) PreferredConnection() connection.QueryResult {
	dbInst, err := a.engine().ResolvePreferred(a.ctx)
	if err != nil {
		return connection.QueryResult{Success: false, Message: err.Error()}
	}
	defer dbInst.Close()
	return connection.QueryResult{Success: true, Message: "连接成功", Data: dbInst.Identity()}
}
