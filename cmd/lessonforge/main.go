package main

import (
	"context"
	"encoding/json"
	"errors"
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

	"github.com/pavelanni/lessonforge/internal/exporter"
	"github.com/pavelanni/lessonforge/internal/generator"
	"github.com/pavelanni/lessonforge/internal/handler"
	appI18n "github.com/pavelanni/lessonforge/internal/i18n"
	"github.com/pavelanni/lessonforge/internal/llm"
	"github.com/pavelanni/lessonforge/internal/model"
	"github.com/pavelanni/lessonforge/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "lessonforge",
		Short: "Progressive language lesson generator powered by LLMs",
	}

	serve := serveCmd()
	root.AddCommand(serve, generateCmd(), exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `lessonforge --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP lesson server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "lessonforge.db", "SQLite database path")
	f.String("llm-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "llama3.2", "LLM model name")
	f.StringP("lang", "l", "en", "Default language for headings and messages (en, ru)")
	f.String("base-path", "", "URL prefix for sub-path deployments (e.g. /lessons)")
	f.Bool("secure-cookies", true, "Set Secure flag on session cookies")
	f.String("admin-password", "", "Initial admin password (or set LESSONFORGE_ADMIN_PASSWORD)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate one lesson from a source text file",
		RunE:  runGenerate,
	}
	f := cmd.Flags()
	f.StringP("input", "i", "-", "Source text file path (- for stdin)")
	f.String("level", "B1", "Target CEFR level (A1, A2, B1, B2, C1)")
	f.String("lesson-type", "discussion", "Lesson type label")
	f.String("target-language", "English", "Language the lesson teaches")
	f.String("llm-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "llama3.2", "LLM model name")
	f.StringP("lang", "l", "en", "Language for section headings (en, ru)")
	f.String("format", "json", "Output format (json, markdown, html)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("db", "", "SQLite database path to also save the lesson into (optional)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a stored lesson by ID",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "lessonforge.db", "SQLite database path")
	f.Int64("id", 0, "Lesson ID to export (required)")
	f.StringP("lang", "l", "en", "Language for section headings (en, ru)")
	f.String("format", "json", "Output format (json, markdown, html)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")

	_ = cmd.MarkFlagRequired("id")

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

	v.SetEnvPrefix("LESSONFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("lessonforge")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/lessonforge")
	v.AddConfigPath("/etc/lessonforge")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func newLLMClient(v *viper.Viper) (*llm.Client, error) {
	client := llm.New(
		v.GetString("llm-url"),
		v.GetString("llm-key"),
		v.GetString("llm-model"),
	)
	if err := client.Ping(context.Background()); err != nil {
		return nil, err
	}
	slog.Info("LLM endpoint OK", "url", v.GetString("llm-url"), "model", v.GetString("llm-model"))
	return client, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	// Seed default admin user if no users exist.
	if err := seedAdmin(db, v.GetString("admin-password")); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	llmClient, err := newLLMClient(v)
	if err != nil {
		return fmt.Errorf("create LLM client: %w", err)
	}

	pipeline, err := generator.NewPipeline(llmClient, generator.NewTracker())
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}

	// Normalize base path.
	basePath := strings.TrimRight(v.GetString("base-path"), "/")
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}

	cfg := model.ServeConfig{
		BasePath:      basePath,
		SecureCookies: v.GetBool("secure-cookies"),
		UILang:        lang,
	}
	h := handler.New(db, pipeline, cfg)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))

	if basePath != "" {
		r.Route(basePath, func(sub chi.Router) {
			h.Routes(sub)
		})
	} else {
		h.Routes(r)
	}

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"model", v.GetString("llm-model"),
		"llm_url", v.GetString("llm-url"),
		"lang", lang,
		"base_path", basePath,
	)
	return http.ListenAndServe(addr, r)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	level, err := model.ParseLevel(v.GetString("level"))
	if err != nil {
		return err
	}

	source, err := readInput(v.GetString("input"))
	if err != nil {
		return fmt.Errorf("read source text: %w", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	llmClient, err := newLLMClient(v)
	if err != nil {
		return fmt.Errorf("create LLM client: %w", err)
	}

	tracker := generator.NewTracker()
	pipeline, err := generator.NewPipeline(llmClient, tracker)
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}

	lesson, err := pipeline.Run(context.Background(), generator.Request{
		SourceText:     source,
		LessonType:     v.GetString("lesson-type"),
		Level:          level,
		TargetLanguage: v.GetString("target-language"),
	})
	if err != nil {
		var inputErr *generator.InputError
		if errors.As(err, &inputErr) {
			for _, s := range inputErr.Outcome.Suggestions {
				slog.Info("suggestion", "text", s)
			}
		}
		return err
	}

	records := tracker.Records()
	if dbPath := v.GetString("db"); dbPath != "" {
		db, err := store.New(dbPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		id, err := db.SaveLesson(lesson, records)
		if err != nil {
			return fmt.Errorf("save lesson: %w", err)
		}
		lesson.ID = id
	}

	summary := tracker.Summary()
	ctx := appI18n.WithLocalizer(context.Background(), appI18n.NewLocalizer(lang))
	slog.Info("lesson generated",
		"title", lesson.Title,
		"level", lesson.Level,
		"status", appI18n.Tp(ctx, "SectionsGenerated", summary.Sections),
		"average_score", summary.AverageScore,
		"total_attempts", summary.TotalAttempts,
	)

	return writeLesson(ctx, v, lesson, records)
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	id := v.GetInt64("id")
	lesson, err := db.GetLesson(id)
	if err != nil {
		return fmt.Errorf("load lesson: %w", err)
	}
	if lesson == nil {
		return fmt.Errorf("lesson %d not found", id)
	}
	records, err := db.GetQualityRecords(id)
	if err != nil {
		return fmt.Errorf("load quality records: %w", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	ctx := appI18n.WithLocalizer(context.Background(), appI18n.NewLocalizer(lang))

	return writeLesson(ctx, v, lesson, records)
}

// writeLesson renders the lesson in the requested format to --output.
func writeLesson(ctx context.Context, v *viper.Viper, lesson *model.Lesson, records []model.QualityRecord) error {
	var rendered string
	switch strings.ToLower(v.GetString("format")) {
	case "markdown", "md":
		rendered = exporter.Markdown(ctx, lesson)
	case "html":
		doc, err := exporter.HTML(ctx, lesson)
		if err != nil {
			return err
		}
		rendered = doc
	case "json":
		export := model.LessonExport{
			ExportedAt: time.Now().UTC(),
			Lesson:     *lesson,
			Quality:    records,
		}
		data, err := json.MarshalIndent(export, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal JSON: %w", err)
		}
		rendered = string(data) + "\n"
	default:
		return fmt.Errorf("unknown format %q (json, markdown, html)", v.GetString("format"))
	}

	outPath := v.GetString("output")
	if outPath == "" || outPath == "-" {
		_, err := io.WriteString(os.Stdout, rendered)
		return err
	}
	if err := os.WriteFile(outPath, []byte(rendered), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	slog.Info("wrote lesson", "path", outPath)
	return nil
}

func readInput(path string) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
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
		return fmt.Errorf("admin password is required: set --admin-password flag or LESSONFORGE_ADMIN_PASSWORD env var")
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
