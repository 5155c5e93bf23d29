package logger

import (
	"go-hr/internal/config"
	"go-hr/internal/database"

	"go.uber.org/zap"
)

// NewLogger builds the application logger. Entries go to the console and, asynchronously,
// to the logs collection.
func NewLogger(cfg *config.Config, mongodb *database.MongodbDB) (*zap.Logger, error) {
	var zapConfig zap.Config
	if cfg.IsProduction() {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	// Function name is stored with every persisted entry
	zapConfig.EncoderConfig.FunctionKey = "func"

	baseLogger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}

	dbWriter := NewDBLogWriter(mongodb, cfg)
	finalCore := NewDBCore(baseLogger.Core(), dbWriter)

	l := zap.New(finalCore, zap.AddCaller()).With(zap.String("app", cfg.AppId))
	zap.ReplaceGlobals(l)
	return l, nil
}
