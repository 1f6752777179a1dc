package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"ragchat/internal/types"
	"ragchat/pkg/config"
	"ragchat/pkg/llm"
	"ragchat/pkg/loader"
	"ragchat/pkg/retriever"
	"ragchat/pkg/splitter"
	"ragchat/pkg/store"
)

type cliFlags struct {
	configPath string
	allowOCR   bool
	jsonKey    string
	redisURL   string
	embedModel string
	chatModel  string
	topK       int
}

func main() {
	// .env is optional; missing files are fine.
	godotenv.Load()

	flags := parseFlags()

	if err := run(flags); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() cliFlags {
	var flags cliFlags

	flag.StringVar(&flags.configPath, "config", "", "Path to config file")
	flag.BoolVar(&flags.allowOCR, "allow-ocr", false, "Allow OCR fallback for PDF pages without embedded text")
	flag.StringVar(&flags.jsonKey, "json-key", "", "Field holding the entry list when a JSON file is an object")
	flag.StringVar(&flags.redisURL, "redis-url", "", "Redis connection URL")
	flag.StringVar(&flags.embedModel, "embed-model", "", "Embedding model name")
	flag.StringVar(&flags.chatModel, "chat-model", "", "Chat model name")
	flag.IntVar(&flags.topK, "top-k", 0, "Number of context chunks per question")
	flag.Parse()

	return flags
}

type app struct {
	loader    *loader.Loader
	store     *store.EmbeddingStore
	retriever *retriever.Retriever
	chat      *llm.ChatEngine
	topK      int

	bar     *progressbar.ProgressBar
	loaded  []string
	scanner *bufio.Scanner
}

func run(flags cliFlags) error {
	cfg, err := config.LoadConfig(flags.configPath)
	if err != nil {
		return err
	}

	// Command line flags win over file and environment.
	if flags.redisURL != "" {
		cfg.Redis.URL = flags.redisURL
	}
	if flags.embedModel != "" {
		cfg.LLM.EmbedModel = flags.embedModel
	}
	if flags.chatModel != "" {
		cfg.LLM.ChatModel = flags.chatModel
	}
	if flags.topK > 0 {
		cfg.Retriever.TopK = flags.topK
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config: %v", e)
		}
		return errors.New("invalid configuration")
	}

	ctx := context.Background()

	client, err := store.Open(ctx, cfg.Redis.URL)
	if err != nil {
		return err
	}
	defer client.Close()

	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Model:             cfg.LLM.EmbedModel,
		BaseURL:           cfg.LLM.BaseURL,
		RequestsPerSecond: cfg.LLM.EmbedRequestsPerS,
	})
	if err != nil {
		return err
	}

	chatEngine, err := llm.NewChatWithConfig(llm.ChatConfig{
		Model:       cfg.LLM.ChatModel,
		BaseURL:     cfg.LLM.BaseURL,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
	})
	if err != nil {
		return err
	}

	docLoader := loader.NewWithConfig(loader.LoaderConfig{
		Splitter: splitter.NewWithConfig(splitter.SplitterConfig{
			ChunkSize:    cfg.Splitter.ChunkSize,
			ChunkOverlap: cfg.Splitter.ChunkOverlap,
		}),
		AllowOCR: flags.allowOCR,
		JSONKey:  flags.jsonKey,
	})

	a, err := newApp(client, embedder, chatEngine, docLoader, cfg.Retriever.TopK, os.Stdin)
	if err != nil {
		return err
	}

	return a.menuLoop(ctx)
}

func newApp(client *redis.Client, embedder types.Embedder, chatEngine *llm.ChatEngine,
	docLoader *loader.Loader, topK int, in io.Reader) (*app, error) {
	a := &app{
		loader:  docLoader,
		chat:    chatEngine,
		topK:    topK,
		scanner: bufio.NewScanner(in),
	}

	var err error
	a.store, err = store.NewWithConfig(client, store.StoreConfig{
		Embedder: embedder,
		// The bar appears lazily with the first embedded unit, so a
		// cache hit renders nothing.
		OnEmbed: func(index, total int) {
			if a.bar == nil {
				a.bar = embedProgressBar(total)
			}
			a.bar.Add(1)
		},
	})
	if err != nil {
		return nil, err
	}

	a.retriever, err = retriever.NewWithConfig(retriever.RetrieverConfig{
		Store:    a.store,
		Embedder: embedder,
		TopK:     topK,
	})
	if err != nil {
		return nil, err
	}

	return a, nil
}

func (a *app) menuLoop(ctx context.Context) error {
	for {
		fmt.Println("\nSelect an option:")
		fmt.Println("1) Chat now (search all embeddings)")
		fmt.Println("2) Load documents")
		fmt.Println("3) Chat with only currently loaded documents")
		fmt.Println("4) Show loaded document namespaces")
		fmt.Println("5) Exit")

		choice, ok := a.prompt("Choice (1-5): ")
		if !ok {
			fmt.Println("\nGoodbye.")
			return nil
		}

		switch choice {
		case "1":
			a.chatLoop(ctx, nil)

		case "2":
			a.interactiveLoad(ctx)
			color.Green("Done loading. %d namespaces loaded.", len(a.loaded))
			a.afterLoadMenu(ctx)

		case "3":
			if len(a.loaded) == 0 {
				fmt.Println("No documents loaded in this session. Use option 2 to load documents first.")
				continue
			}
			a.chatLoop(ctx, a.loaded)

		case "4":
			if len(a.loaded) == 0 {
				fmt.Println("No namespaces loaded in this session.")
				continue
			}
			fmt.Println("Loaded namespaces:")
			for _, ns := range a.loaded {
				fmt.Println(" -", ns)
			}

		case "5", "exit":
			fmt.Println("Goodbye.")
			return nil

		default:
			fmt.Println("Invalid choice. Enter a number 1-5.")
		}
	}
}

func (a *app) afterLoadMenu(ctx context.Context) {
	for {
		next, ok := a.prompt("Type 'add' to load more, 'chat' to ask questions, or 'back' to main menu: ")
		if !ok {
			return
		}
		switch strings.ToLower(next) {
		case "add":
			a.interactiveLoad(ctx)
		case "chat":
			scope, ok := a.prompt("Search scope: (a)ll or (l)oaded? [a/l]: ")
			if !ok {
				return
			}
			var namespaces []string
			if strings.ToLower(scope) == "l" {
				// Restrict to the session's namespaces even when none
				// are loaded; an empty scope finds no documents.
				namespaces = append([]string{}, a.loaded...)
			}
			a.chatLoop(ctx, namespaces)
			return
		case "back":
			return
		default:
			fmt.Println("Unknown option. Use 'add', 'chat', or 'back'.")
		}
	}
}

func (a *app) interactiveLoad(ctx context.Context) {
	fmt.Println("\nEnter file paths to load. You can enter multiple paths separated by commas,")
	fmt.Println("or enter one path per line and type 'done' when finished.")

	for {
		input, ok := a.prompt("\nPath (or 'done' to finish): ")
		if !ok || strings.ToLower(input) == "done" {
			return
		}

		for _, path := range strings.Split(input, ",") {
			path = strings.TrimSpace(path)
			if path == "" {
				continue
			}
			if _, err := os.Stat(path); err != nil {
				color.Red("Path not found: %s", path)
				continue
			}
			if err := a.loadPath(ctx, path); err != nil {
				color.Red("Failed to load %s: %v", path, err)
			}
		}
	}
}

func (a *app) loadPath(ctx context.Context, path string) error {
	doc, err := a.loader.Load(path)
	if err != nil {
		return err
	}
	color.Blue("Loaded %d text units from %s", len(doc.Units), path)

	built, err := a.store.StoreOnce(ctx, doc.Namespace, doc.Units)
	if a.bar != nil {
		a.bar.Finish()
		a.bar = nil
	}
	if err != nil {
		return err
	}

	if !built {
		color.Yellow("Found existing embeddings for %s, skipping rebuild.", path)
	}

	for _, ns := range a.loaded {
		if ns == doc.Namespace {
			return nil
		}
	}
	a.loaded = append(a.loaded, doc.Namespace)
	return nil
}

func (a *app) chatLoop(ctx context.Context, namespaces []string) {
	userPrompt := color.New(color.FgGreen).PrintfFunc()
	assistantPrompt := color.New(color.FgCyan).PrintfFunc()

	for {
		userPrompt("\nAsk a question (or type 'back' to stop): ")
		if !a.scanner.Scan() {
			return
		}
		query := strings.TrimSpace(a.scanner.Text())
		if query == "" {
			continue
		}
		if q := strings.ToLower(query); q == "back" || q == "exit" {
			return
		}

		answer, err := a.ask(ctx, query, namespaces)
		if err != nil {
			color.Red("Error: %v", err)
			continue
		}
		assistantPrompt("\nAnswer: %s\n", answer)
	}
}

func (a *app) ask(ctx context.Context, query string, namespaces []string) (string, error) {
	results, err := a.retriever.Query(ctx, namespaces, query, a.topK)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "No relevant documents found.", nil
	}

	contexts := make([]string, len(results))
	for i, res := range results {
		contexts[i] = res.Text
	}
	return a.chat.Answer(ctx, query, contexts)
}

// prompt reads one line of input. ok is false once stdin is closed, so
// every loop that prompts can unwind instead of spinning on a dead scanner.
func (a *app) prompt(label string) (input string, ok bool) {
	fmt.Print(label)
	if !a.scanner.Scan() {
		return "", false
	}
	return strings.TrimSpace(a.scanner.Text()), true
}

func embedProgressBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString("Embedding entries")),
		progressbar.OptionSetItsString("chunks"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}
