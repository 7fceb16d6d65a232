// Package testutil provides helpers shared by package tests: temporary
// config trees and captured, context-carried loggers.
package testutil
