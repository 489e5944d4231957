package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"DRFashion-Sync/internal/app"
	"DRFashion-Sync/internal/connection"
	"DRFashion-Sync/internal/logger"
	"DRFashion-Sync/internal/sync"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "drsync.json", "settings file")
	mode := flag.String("mode", app.ModeUpsert, "upsert, reconcile, analyze, test or status")
	direction := flag.String("direction", "local-to-online", "local-to-online, online-to-local or both (upsert only)")
	reportPath := flag.String("report", "", "write a report to this file (.xlsx, .csv, .json or .md)")
	quiet := flag.Bool("quiet", false, "do not print progress")
	flag.Parse()

	settings, err := connection.LoadSettings(*configPath)
	if err != nil {
		logger.Error(err, "读取配置失败：%s", *configPath)
		fmt.Fprintf(os.Stderr, "读取配置失败：%v\n", err)
		return 2
	}

	var sink sync.ProgressSink
	if !*quiet {
		sink = func(message string) { fmt.Println(message) }
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Create an instance of the app structure
	application := app.NewApp(settings, sink)
	if err := application.Startup(ctx); err != nil {
		logger.Error(err, "应用启动失败")
		fmt.Fprintf(os.Stderr, "应用启动失败：%v\n", err)
		return 1
	}
	defer application.Shutdown()

	var report *app.Report
	ok := true
	switch strings.ToLower(strings.TrimSpace(*mode)) {
	case "analyze":
		qr := application.DataSyncAnalyze()
		ok = qr.Success
		if res, isResult := qr.Data.(sync.SyncAnalyzeResult); isResult {
			r := app.AnalyzeReport(res)
			report = &r
		}
		if !ok {
			fmt.Fprintln(os.Stderr, qr.Message)
		}
	case "test":
		qr := application.TestConnection()
		ok = qr.Success
		fmt.Printf("%s：%v\n", qr.Message, qr.Data)
	case "status":
		qr := application.PreferredConnection()
		ok = qr.Success
		if ok {
			fmt.Printf("当前可用数据库：%v\n", qr.Data)
		} else {
			fmt.Fprintln(os.Stderr, qr.Message)
		}
	default:
		res, err := application.DataSync(*mode, *direction)
		ok = err == nil
		r := app.SyncReport(res)
		report = &r
		if err != nil {
			fmt.Fprintf(os.Stderr, "同步失败：%v\n", err)
		}
	}

	if *reportPath != "" && report != nil {
		if err := application.ExportReport(*report, *reportPath, ""); err != nil {
			fmt.Fprintf(os.Stderr, "导出报告失败：%v\n", err)
			ok = false
		}
	}

	if !ok {
		fmt.Fprintf(os.Stderr, "详细日志：%s\n", logger.Path())
		return 1
	}
	return 0
}
