// Package logger wraps zap with a process-wide sugared logger, an atomic
// logging level and context helpers so components can log under their own name.
//
// The synchronization core reports every abort and warning through this
// package in addition to the structured Outcome values it returns.
package logger
