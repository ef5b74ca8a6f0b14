package utils

import (
	"admin_gate/internal/dataType"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const systemLogHost = "_gate"

// DefaultMaxLogHosts bounds how many per-host loggers a manager opens. Hosts
// seen after the limit is reached share the system logger.
const DefaultMaxLogHosts = 64

type LogxManager struct {
	basePath string
	loggers  map[string]*zap.Logger
	maxHosts int
	hosts    int
	mu       sync.RWMutex
}

var defaultManager atomic.Pointer[LogxManager]

// NewManager writes per-host logs under base. An empty base logs to stdout.
func NewManager(base string) *LogxManager {
	m := &LogxManager{basePath: base, loggers: make(map[string]*zap.Logger), maxHosts: DefaultMaxLogHosts}
	if base == "" {
		return m
	}
	if err := os.MkdirAll(m.basePath, 0744); err != nil {
		log.Printf("failed to create base log dir %s: %v", m.basePath, err)
	}
	return m
}

// SetDefault installs m as the target of the package level Log* helpers.
func SetDefault(m *LogxManager) {
	defaultManager.Store(m)
}

func getDefault() *LogxManager {
	if m := defaultManager.Load(); m != nil {
		return m
	}
	m := NewManager("")
	if defaultManager.CompareAndSwap(nil, m) {
		return m
	}
	return defaultManager.Load()
}

func (m *LogxManager) getLogger(host string) *zap.Logger {
	if host == "" {
		host = systemLogHost
	}
	m.mu.RLock()
	if lg, ok := m.loggers[host]; ok {
		m.mu.RUnlock()
		return lg
	}
	m.mu.RUnlock()
	m.mu.Lock()
	defer m.mu.Unlock()
	if lg, ok := m.loggers[host]; ok {
		return lg
	}

	if host != systemLogHost && m.hosts >= m.maxHosts {
		lg, ok := m.loggers[systemLogHost]
		if !ok {
			lg = m.newLogger(systemLogHost)
			m.loggers[systemLogHost] = lg
		}
		return lg
	}

	lg := m.newLogger(host)
	m.loggers[host] = lg
	if host != systemLogHost {
		m.hosts++
	}
	return lg
}

// newLogger must be called with m.mu held.
func (m *LogxManager) newLogger(host string) *zap.Logger {
	encCfg := zapcore.EncoderConfig{MessageKey: "msg", LineEnding: zapcore.DefaultLineEnding}
	encoder := zapcore.NewConsoleEncoder(encCfg)

	if m.basePath == "" {
		return zap.New(zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), zapcore.InfoLevel))
	}

	dir := filepath.Join(m.basePath, host)
	if err := os.MkdirAll(dir, 0744); err != nil {
		log.Printf("failed to create log dir %s: %v", dir, err)
	}

	infoOut := zapcore.AddSync(m.openLogFile(filepath.Join(dir, "info.log")))
	errorOut := zapcore.AddSync(m.openLogFile(filepath.Join(dir, "error.log")))
	dbgOut := zapcore.AddSync(m.openLogFile(filepath.Join(dir, "debug.log")))

	infoLv := zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l == zapcore.InfoLevel })
	errLv := zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l >= zapcore.ErrorLevel })
	dbgLv := zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l == zapcore.DebugLevel })

	return zap.New(zapcore.NewTee(
		zapcore.NewCore(encoder, infoOut, infoLv),
		zapcore.NewCore(encoder, errorOut, errLv),
		zapcore.NewCore(encoder, dbgOut, dbgLv),
	))
}

func (m *LogxManager) openLogFile(path string) *os.File {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("failed to open log file %s: %v", path, err)
		return os.Stdout
	}
	return f
}

// Sync flushes every logger created so far.
func (m *LogxManager) Sync() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, lg := range m.loggers {
		_ = lg.Sync()
	}
}

func requestLine(reqData dataType.UserRequest, msg, msg2 string) string {
	return fmt.Sprintf("%s - %s [%s] %s %s %s %s %s",
		reqData.RemoteIP,
		reqData.RequestID,
		time.Now().Format("02/Jan/2006:15:04:05 -0700"),
		msg,
		reqData.Host,
		reqData.Uri,
		DescribeUserAgent(reqData.UserAgent),
		msg2,
	)
}

func systemLine(msg, msg2 string) string {
	return fmt.Sprintf("[%s] %s %s", time.Now().Format("02/Jan/2006:15:04:05 -0700"), msg, msg2)
}

func (m *LogxManager) LogInfo(reqData dataType.UserRequest, msg, msg2 string) {
	m.getLogger(reqData.Host).Info(requestLine(reqData, msg, msg2))
}

func (m *LogxManager) LogError(reqData dataType.UserRequest, msg, msg2 string) {
	m.getLogger(reqData.Host).Error(requestLine(reqData, msg, msg2))
}

func (m *LogxManager) LogDebug(reqData dataType.UserRequest, msg, msg2 string) {
	m.getLogger(reqData.Host).Debug(requestLine(reqData, msg, msg2))
}

// LogSystem records events that are not tied to a request, such as rule reloads.
func (m *LogxManager) LogSystem(level zapcore.Level, msg, msg2 string) {
	if ce := m.getLogger(systemLogHost).Check(level, systemLine(msg, msg2)); ce != nil {
		ce.Write()
	}
}

func LogInfo(reqData dataType.UserRequest, msg, msg2 string) {
	getDefault().LogInfo(reqData, msg, msg2)
}

func LogError(reqData dataType.UserRequest, msg, msg2 string) {
	getDefault().LogError(reqData, msg, msg2)
}

func LogDebug(reqData dataType.UserRequest, msg, msg2 string) {
	getDefault().LogDebug(reqData, msg, msg2)
}

func LogSystem(level zapcore.Level, msg, msg2 string) {
	getDefault().LogSystem(level, msg, msg2)
}
