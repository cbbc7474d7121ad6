package utils

// LoggerKey is the gin context key holding the request-scoped *zap.Logger.
const LoggerKey = "logger"

// RequestIDHeader carries the request id in and out of the API.
const RequestIDHeader = "X-Request-ID"
