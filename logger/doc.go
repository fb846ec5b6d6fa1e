// Package logger provides structured logging built on zerolog.
//
// Components receive a *Logger at construction and tag it:
//
//	log := logger.NewFromEnv("shieldkit").WithComponent("invoker")
//	log.Info("cache hit", logger.Fields(logger.FieldKey, key))
//
// A Nop logger is available for components where logging is optional.
package logger
