package app

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/richardbrinkman/plagiarism/internal/config"
	apperrors "github.com/richardbrinkman/plagiarism/internal/errors"
	"github.com/richardbrinkman/plagiarism/internal/logging"
	"github.com/richardbrinkman/plagiarism/internal/server"
	"github.com/richardbrinkman/plagiarism/internal/similarity"
)

// dotEnvFile is read by serve before the configuration is resolved.
const dotEnvFile = ".env"

func (a *Application) serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve detections over HTTP",
		Long: `Starts the web front-end. POST /detect accepts an upload in the
input_file field, GET /progress/{id} streams the progress as server-sent
events and GET /report/{id} downloads the report.

PORT is honored when neither --addr nor PLAGIARISM_ADDR is set, and a .env
file in the working directory is loaded first.`,
		Args: cobra.NoArgs,
		RunE: a.runServe,
	}
	config.RegisterServeFlags(cmd.Flags(), &a.Config)
	return cmd
}

func (a *Application) runServe(cmd *cobra.Command, _ []string) error {
	if err := config.LoadDotEnv(dotEnvFile); err != nil {
		return err
	}
	if err := config.Load(&a.Config, cmd.Flags()); err != nil {
		return err
	}
	config.ApplyPort(&a.Config, cmd.Flags())
	a.initTheme()

	sim, err := similarity.ByName(a.Config.Algorithm)
	if err != nil {
		return apperrors.NewConfigError("%v", err)
	}
	level, _ := logging.ParseLevel(a.Config.LogLevel)
	logger := logging.NewZerologAdapter(zerolog.New(a.ErrWriter).Level(level).
		With().Timestamp().Str("component", "server").Logger())

	security := server.DefaultSecurityConfig()
	security.MaxUploadBytes = a.Config.MaxUpload
	srv := server.New(server.Config{
		Addr:       a.Config.Addr,
		UploadDir:  a.Config.UploadDir,
		Keepalive:  a.Config.Keepalive,
		SessionTTL: a.Config.SessionTTL,
		Workers:    a.Config.Workers,
		Similarity: sim,
		Columns:    a.Config.Columns,
		Converter:  a.Converter,
		Security:   security,
	}, logger)

	ctx, cancel := runContext(cmd.Context(), 0)
	defer cancel()
	return srv.Start(ctx)
}
