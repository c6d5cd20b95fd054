package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/careerboost/interviewlab/internal/capture"
	"github.com/careerboost/interviewlab/internal/genai"
	"github.com/careerboost/interviewlab/internal/handler"
	appI18n "github.com/careerboost/interviewlab/internal/i18n"
	"github.com/careerboost/interviewlab/internal/model"
	"github.com/careerboost/interviewlab/internal/store"
	"github.com/careerboost/interviewlab/internal/submit"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "interviewlab",
		Short: "Mock interview practice server",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `interviewlab --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP interview server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "interviewlab.db", "SQLite database path")
	f.StringP("media", "m", "audio", "Default capture mode (audio, video)")
	f.String("audio-upload-url", "http://localhost:8000/transcribe", "Audio analysis endpoint")
	f.String("video-upload-url", "http://localhost:8000/analyze-video", "Video analysis endpoint")
	f.String("generator", "agent", "Question generator backend (agent, openai)")
	f.String("agent-url", "", "Hosted question-generation agent URL")
	f.String("llm-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "llama3.2", "LLM model name")
	f.IntP("question-count", "n", 0, "Questions per interview (0 = generator default)")
	f.Duration("upload-timeout", 60*time.Second, "Per-recording upload timeout (0 = none)")
	f.Duration("summary-delay", 2*time.Second, "How long the UI should hold the summary view")
	f.StringP("lang", "l", "en", "UI language (en, ru)")
	f.Bool("secure-cookies", true, "Set Secure flag on cookies")
	f.String("admin-password", "", "Initial admin password (or set INTERVIEWLAB_ADMIN_PASSWORD)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export interview results as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "interviewlab.db", "SQLite database path")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("INTERVIEWLAB")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("interviewlab")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/interviewlab")
	v.AddConfigPath("/etc/interviewlab")
	v.AddConfigPath("/data")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	// Open database.
	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	// Seed default admin user if no users exist.
	if err := seedAdmin(db, v.GetString("admin-password")); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	// Initialize i18n.
	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	// Pick the question generator backend.
	var generator genai.Generator
	switch strings.ToLower(v.GetString("generator")) {
	case "openai":
		generator = genai.NewOpenAIGenerator(
			v.GetString("llm-url"),
			v.GetString("llm-key"),
			v.GetString("llm-model"),
		)
		slog.Info("using OpenAI-compatible generator",
			"url", v.GetString("llm-url"), "model", v.GetString("llm-model"))
	default:
		agentURL := v.GetString("agent-url")
		if agentURL == "" {
			return fmt.Errorf("agent generator selected but --agent-url is empty")
		}
		generator = genai.NewAgentClient(agentURL)
		slog.Info("using hosted agent generator", "url", agentURL)
	}

	media := model.MediaKind(v.GetString("media"))
	if media != model.MediaAudio && media != model.MediaVideo {
		slog.Warn("invalid media mode, using audio", "media", media)
		media = model.MediaAudio
	}

	cfg := model.Config{
		Media:          media,
		QuestionCount:  v.GetInt("question-count"),
		UploadTimeout:  v.GetDuration("upload-timeout"),
		SummaryDelay:   v.GetDuration("summary-delay"),
		AudioUploadURL: v.GetString("audio-upload-url"),
		VideoUploadURL: v.GetString("video-upload-url"),
		SecureCookies:  v.GetBool("secure-cookies"),
	}

	uploader := submit.NewAnalysisClient(cfg.AudioUploadURL, cfg.VideoUploadURL)
	h := handler.New(db, generator, capture.RemoteDevice{}, uploader, cfg)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"media", media,
		"audio_upload_url", cfg.AudioUploadURL,
		"video_upload_url", cfg.VideoUploadURL,
		"question_count", cfg.QuestionCount,
		"upload_timeout", cfg.UploadTimeout,
		"lang", lang,
	)
	return http.ListenAndServe(addr, r)
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	results, err := db.ExportAllInterviews()
	if err != nil {
		return fmt.Errorf("export interviews: %w", err)
	}

	export := model.InterviewExport{
		ExportedAt: time.Now().UTC(),
		Results:    results,
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	return nil
}

func seedAdmin(db *store.Store, password string) error {
	count, err := db.UserCount()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if password == "" {
		return fmt.Errorf("admin password is required: set --admin-password flag or INTERVIEWLAB_ADMIN_PASSWORD env var")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	_, err = db.CreateUser(model.User{
		Username:     "admin",
		DisplayName:  "Administrator",
		PasswordHash: string(hash),
		Role:         model.UserRoleAdmin,
		Active:       true,
	})
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	slog.Info("seeded default admin user", "username", "admin")
	return nil
}
