package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shellicar/claude-cli/agent"
	"github.com/shellicar/claude-cli/config"
	"github.com/shellicar/claude-cli/llm"
	"github.com/shellicar/claude-cli/logging"
	"github.com/shellicar/claude-cli/session"
)

func main() {
	sessionFlag := flag.String("s", "", "Session name to create or use")
	resumeFlag := flag.String("r", "", "Resume a session by name")
	modelFlag := flag.String("m", "", "Model name (overrides config)")
	traceFlag := flag.Bool("trace", false, "Enable structured trace logging")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %+v\n", err)
		os.Exit(1)
	}
	if *modelFlag != "" {
		cfg.Model = *modelFlag
	}
	if cfg.LogFile != "" {
		logging.Configure(cfg.LogFile)
	}
	logging.SetTraceEnabled(*traceFlag)

	var sess *session.Session
	sessionName := *sessionFlag

	if *resumeFlag != "" {
		sessionName = *resumeFlag
		sess, err = session.Load(sessionName)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error resuming session '%s': %+v\n", sessionName, err)
			os.Exit(1)
		}
	} else {
		if sessionName == "" {
			sessionName = defaultSessionName()
		}
		sess, err = session.New(sessionName)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating session '%s': %+v\n", sessionName, err)
			os.Exit(1)
		}
	}
	if err := sess.Save(); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving session '%s': %+v\n", sessionName, err)
		os.Exit(1)
	}

	var client llm.Client
	switch cfg.LLMClient {
	case "openai":
		client, err = llm.NewOpenAIClient(context.Background(), cfg.Model)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error initializing OpenAI client: %+v\n", err)
			os.Exit(1)
		}
	case "anthropic":
		client, err = llm.NewAnthropicClient(context.Background(), cfg.Model)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error initializing Anthropic client: %+v\n", err)
			os.Exit(1)
		}
	default:
		client = llm.NewScriptClient()
	}

	app := agent.NewApp(cfg, sess, client, os.Stdout, 80)
	if err := app.Run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Session stopped with an error: %+v\n", err)
		os.Exit(1)
	}
}

func defaultSessionName() string {
	wd, err := os.Getwd()
	if err != nil {
		wd = "session"
	}
	dirName := filepath.Base(wd)
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return fmt.Sprintf("%s_%s", dirName, timestamp)
}
