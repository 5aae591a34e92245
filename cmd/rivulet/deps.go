package main

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/flowloom/rivulet/artifact"
	"github.com/flowloom/rivulet/config"
	"github.com/flowloom/rivulet/infra"
	apiinfra "github.com/flowloom/rivulet/infra/api"
	"github.com/flowloom/rivulet/plugin"
	"github.com/flowloom/rivulet/services/credentials"
	"github.com/flowloom/rivulet/services/image"
	"github.com/flowloom/rivulet/services/ollama"
	"github.com/flowloom/rivulet/services/openai"
	"github.com/flowloom/rivulet/services/python"
	"github.com/flowloom/rivulet/services/speech"
)

// newProcessLogger builds the zap logger every cmd/rivulet entry point
// logs through, mirroring FlowShift's main.go (development config, color
// level encoding). It never returns nil — a Build failure falls back to
// a no-op logger rather than aborting the command.
func newProcessLogger() *zap.Logger {
	zcfg := zap.NewDevelopmentConfig()
	zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logger, err := zcfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// buildDeps assembles the plugin.Deps shared by every subcommand. The
// WebLLM backend is OpenAI when OPENAI_API_KEY is set, otherwise the
// local Ollama endpoint from cfg — no credentials required to exercise
// aiAgent/llm nodes against a local model. logger is threaded straight
// onto Deps.Log so engine/scheduler/httpapi all log through the same
// instance the caller already holds.
func buildDeps(cfg config.Config, logger *zap.Logger) plugin.Deps {
	creds := credentials.New()
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		creds.Set("openai", v)
	}

	var webLLM plugin.WebLLM
	if key, ok := creds.Get("openai"); ok {
		webLLM = openai.New(key, cfg.OpenAIBaseURL)
	} else {
		webLLM = ollama.New(cfg.OllamaEndpoint)
	}

	var files plugin.FileStore
	if cfg.FilesBackend == "memory" {
		files = infra.NewMemFiles()
	} else {
		files = infra.NewLocalFiles()
	}

	deps := plugin.Deps{
		State:       infra.NewMemState(),
		Bus:         apiinfra.NullBus{},
		Files:       files,
		Artifacts:   artifact.New(),
		WebLLM:      webLLM,
		Speech:      speech.New(),
		ImageGen:    image.New(),
		Python:      python.New(cfg.PythonBin, cfg.DataDir),
		Credentials: creds,
		Log:         logger,
	}
	return deps
}
