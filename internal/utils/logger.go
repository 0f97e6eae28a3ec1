package utils

import (
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

// Log 全局 logger；未调用 Init 时也可直接使用（测试里即如此）
var Log = newLogger(os.Stderr)

func newLogger(w io.Writer) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
	})
}

// Init 按配置的级别重建 Log，并换上带颜色的级别标签
func Init(level string) {
	Log = newLogger(os.Stderr)

	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	Log.SetLevel(lvl)
	Log.SetStyles(styles())
}

func badge(text, bg, fg string) lipgloss.Style {
	return lipgloss.NewStyle().
		SetString(text).
		Padding(0, 1, 0, 1).
		Background(lipgloss.Color(bg)).
		Foreground(lipgloss.Color(fg)).Bold(true)
}

func styles() *log.Styles {
	s := log.DefaultStyles()
	s.Levels[log.DebugLevel] = badge("DEBUG🔍", "#444444FF", "#DDDDDDFF")
	s.Levels[log.InfoLevel] = badge("INFO🃏", "#90EE9080", "#006400FF")
	s.Levels[log.WarnLevel] = badge("WARN♠️", "#FFD700FF", "#000000FF")
	s.Levels[log.ErrorLevel] = badge("ERROR🔥", "#FF0000FF", "#00FFFF00")
	s.Levels[log.FatalLevel] = badge("FATAL⚡️", "#000000FF", "#00FFFF00")
	return s
}
