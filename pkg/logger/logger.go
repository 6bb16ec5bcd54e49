package logger

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/natefinch/lumberjack"
	"github.com/sing3demons/authgateway/internal/config"
	"github.com/sing3demons/authgateway/pkg/logAction"
)

type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

type LogType string

const (
	TypeDetail  LogType = "detail"
	TypeSummary LogType = "summary"
)

type ctxKey string

const LoggerKey ctxKey = "logger"

type ILogger interface {
	Debug(action logAction.LoggerAction, data any, maskingRules ...MaskingRule)
	Info(action logAction.LoggerAction, data any, maskingRules ...MaskingRule)
	Warn(action logAction.LoggerAction, data any, maskingRules ...MaskingRule)
	Error(action logAction.LoggerAction, data any, maskingRules ...MaskingRule)

	SetDependencyMetadata(metadata DependencyMetadata) ILogger
	AddMetadata(key string, value any)
	AddSuccess(key string, value any)

	SetSessionID(sessionID string)
	SetTransactionID(transactionID string)
	SetUseCase(useCase string)
	SessionID() string
	TransactionID() string
	StartTransaction(transactionID, sessionID string)

	Flush(statusCode int, message string)
	FlushError(statusCode int, message string)
}

type DetailLog struct {
	Timestamp         string         `json:"timestamp"`
	Level             LogLevel       `json:"level"`
	Type              LogType        `json:"type"`
	Service           string         `json:"service"`
	Version           string         `json:"version"`
	TransactionID     string         `json:"transactionId,omitempty"`
	SessionID         string         `json:"sessionId,omitempty"`
	UseCase           string         `json:"useCase,omitempty"`
	Action            string         `json:"action,omitempty"`
	ActionDescription string         `json:"actionDescription,omitempty"`
	SubAction         string         `json:"subAction,omitempty"`
	Message           string         `json:"message,omitempty"`
	Dependency        string         `json:"dependency,omitempty"`
	ResponseTime      int64          `json:"responseTime,omitempty"`
	ResultCode        string         `json:"resultCode,omitempty"`
	ResultFlag        string         `json:"resultFlag,omitempty"`
	Duration          int64          `json:"duration,omitempty"`
	StatusCode        int            `json:"statusCode,omitempty"`
	Metadata          map[string]any `json:"metadata,omitempty"`
}

// DependencyMetadata describes the remote dependency the next log line is about.
type DependencyMetadata struct {
	Dependency   string
	ResponseTime int64
	ResultCode   string
	ResultFlag   string
}

type Logger struct {
	mu            sync.Mutex
	service       string
	version       string
	config        *config.LoggerConfig
	transactionID string
	sessionID     string
	UseCase       string
	startTime     time.Time
	metadata      map[string]any
	dependency    *DependencyMetadata
	out           io.Writer
}

func NewLogger(service, version string) ILogger {
	return NewLoggerWithConfig(service, version, config.DefaultConfig())
}

func NewLoggerWithConfig(service, version string, cfg *config.LoggerConfig) ILogger {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Logger{
		service:   service,
		version:   version,
		config:    cfg,
		startTime: time.Now(),
		metadata:  make(map[string]any),
		out:       os.Stdout,
	}
}

// SetLogger stores the request scoped logger in ctx.
func SetLogger(ctx context.Context, l ILogger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, LoggerKey, l)
}

// GetLogger returns nil when ctx carries no logger.
func GetLogger(ctx context.Context) ILogger {
	if ctx == nil {
		return nil
	}
	l, ok := ctx.Value(LoggerKey).(ILogger)
	if !ok {
		return nil
	}
	return l
}

func (l *Logger) SetSessionID(sessionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sessionID = sessionID
}

func (l *Logger) SetTransactionID(transactionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.transactionID = transactionID
}

func (l *Logger) SetUseCase(useCase string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.UseCase = useCase
}

func (l *Logger) SessionID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sessionID
}

func (l *Logger) TransactionID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transactionID
}

// StartTransaction initializes a new transaction with IDs
func (l *Logger) StartTransaction(transactionID, sessionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.transactionID = transactionID
	l.sessionID = sessionID
	l.startTime = time.Now()
	l.metadata = make(map[string]any)
}

// SetDependencyMetadata tags the next detail line with the dependency it describes.
func (l *Logger) SetDependencyMetadata(metadata DependencyMetadata) ILogger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.dependency = &metadata
	return l
}

func (l *Logger) Debug(action logAction.LoggerAction, data any, maskingRules ...MaskingRule) {
	l.detail(LevelDebug, action, data, maskingRules...)
}

func (l *Logger) Info(action logAction.LoggerAction, data any, maskingRules ...MaskingRule) {
	l.detail(LevelInfo, action, data, maskingRules...)
}

func (l *Logger) Warn(action logAction.LoggerAction, data any, maskingRules ...MaskingRule) {
	l.detail(LevelWarn, action, data, maskingRules...)
}

func (l *Logger) Error(action logAction.LoggerAction, data any, maskingRules ...MaskingRule) {
	l.detail(LevelError, action, data, maskingRules...)
}

func (l *Logger) detail(level LogLevel, action logAction.LoggerAction, data any, maskingRules ...MaskingRule) {
	maskedData := data
	if len(maskingRules) > 0 {
		maskedData = MaskData(data, maskingRules)
	}

	l.mu.Lock()
	log := DetailLog{
		Level:             level,
		Type:              TypeDetail,
		Action:            action.Action,
		ActionDescription: action.ActionDescription,
		SubAction:         action.SubAction,
		Message:           dataToString(maskedData),
		TransactionID:     l.transactionID,
		SessionID:         l.sessionID,
		UseCase:           l.UseCase,
	}
	if l.dependency != nil {
		log.Dependency = l.dependency.Dependency
		log.ResponseTime = l.dependency.ResponseTime
		log.ResultCode = l.dependency.ResultCode
		log.ResultFlag = l.dependency.ResultFlag
		l.dependency = nil
	}
	l.mu.Unlock()

	l.write(log)
}

// AddMetadata adds or overwrites a metadata key-value pair
func (l *Logger) AddMetadata(key string, value any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.metadata[key] = value
}

// AddSuccess adds a value to metadata, creating an array if the key already exists
func (l *Logger) AddSuccess(key string, value any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	existing, exists := l.metadata[key]
	if !exists {
		l.metadata[key] = value
		return
	}
	if arr, isArray := existing.([]any); isArray {
		l.metadata[key] = append(arr, value)
		return
	}
	l.metadata[key] = []any{existing, value}
}

// Flush writes a summary log with success status and cleans up accumulated state
func (l *Logger) Flush(statusCode int, message string) {
	l.summary(LevelInfo, statusCode, message)
}

// FlushError writes a summary log with error status and cleans up accumulated state
func (l *Logger) FlushError(statusCode int, message string) {
	l.summary(LevelError, statusCode, message)
}

func (l *Logger) summary(level LogLevel, statusCode int, message string) {
	l.mu.Lock()
	log := DetailLog{
		Level:         level,
		Type:          TypeSummary,
		Message:       message,
		TransactionID: l.transactionID,
		SessionID:     l.sessionID,
		UseCase:       l.UseCase,
		StatusCode:    statusCode,
		Duration:      time.Since(l.startTime).Milliseconds(),
		Metadata:      l.metadata,
	}
	l.metadata = make(map[string]any)
	l.startTime = time.Now()
	l.mu.Unlock()

	l.write(log)
}

func (l *Logger) write(log DetailLog) {
	log.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	log.Service = l.service
	log.Version = l.version

	jsonLog, err := json.Marshal(log)
	if err != nil {
		return
	}
	jsonLog = append(jsonLog, '\n')

	outputConfig := l.config.Detail
	if log.Type == TypeSummary {
		outputConfig = l.config.Summary
	}

	if outputConfig.Console && l.out != nil {
		l.out.Write(jsonLog)
	}
	if outputConfig.File {
		fileWriter(outputConfig.Path, string(log.Type), l.config.Rotation).Write(jsonLog)
	}
}

var (
	writersMu sync.Mutex
	writers   = map[string]*lumberjack.Logger{}
)

// fileWriter returns the rotating writer for a directory, shared by every request logger.
func fileWriter(basePath, name string, rotation config.RotationConfig) io.Writer {
	writersMu.Lock()
	defer writersMu.Unlock()

	filename := filepath.Join(basePath, name+".log")
	if w, ok := writers[filename]; ok {
		return w
	}

	maxSizeMB := int(rotation.MaxSize / (1024 * 1024))
	if maxSizeMB <= 0 {
		maxSizeMB = 100
	}
	w := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    maxSizeMB,
		MaxAge:     rotation.MaxAge,
		MaxBackups: rotation.MaxBackups,
		Compress:   rotation.Compress,
	}
	writers[filename] = w
	return w
}

func dataToString(data any) string {
	if data == nil {
		return ""
	}
	if str, ok := data.(string); ok {
		return str
	}
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return ""
	}
	return string(jsonBytes)
}
