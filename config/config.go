package config

import (
	"github.com/datastax/sql-data-gateway/log"
	"time"
)

type Config interface {
	SchemaUpdateInterval() time.Duration
	Naming() NamingConvention
	DevelopmentMode() bool
	SupportedOperations() Operations
	Logger() log.Logger
}
