package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/TradeIntentAI/trade-intent-sdk/pkg/chains"
	"github.com/TradeIntentAI/trade-intent-sdk/pkg/gateway"
	"github.com/TradeIntentAI/trade-intent-sdk/pkg/history"
	"github.com/TradeIntentAI/trade-intent-sdk/pkg/intent"
	"github.com/TradeIntentAI/trade-intent-sdk/pkg/orchestrator"
	"github.com/TradeIntentAI/trade-intent-sdk/pkg/settle"
	"github.com/TradeIntentAI/trade-intent-sdk/pkg/version"
	"github.com/TradeIntentAI/trade-intent-sdk/pkg/wallet"
)

func main() {
	// Load .env if present; real deployments set the environment directly.
	_ = godotenv.Load()

	privateKey := os.Getenv("PRIVATE_KEY")
	if privateKey == "" {
		log.Fatal("PRIVATE_KEY is required")
	}
	signer, err := wallet.NewSigner(privateKey)
	if err != nil {
		log.Fatalf("Failed to load signing key: %v", err)
	}

	registry := buildRegistry()

	classifier, err := buildClassifier()
	if err != nil {
		log.Fatalf("Failed to configure classifier: %v", err)
	}

	stateDir := os.Getenv("STATE_DIR")
	if stateDir == "" {
		stateDir = ".trade-intent"
	}

	orch, err := orchestrator.New(orchestrator.Config{
		Registry:   registry,
		Signer:     signer,
		Classifier: classifier,
		ForceAMM:   os.Getenv("FORCE_AMM") == "true",
		Journal:    settle.NewJournal(filepath.Join(stateDir, "journal.json")),
		WAL:        settle.NewWAL(filepath.Join(stateDir, "wal")),
	})
	if err != nil {
		log.Fatalf("Failed to build orchestrator: %v", err)
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is required")
	}
	auth, err := gateway.NewAuthenticator([]byte(secret))
	if err != nil {
		log.Fatalf("Failed to build authenticator: %v", err)
	}

	server := gateway.NewServer(orch, auth)
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		store, err := history.NewStore(history.Config{
			Address:  addr,
			Password: os.Getenv("REDIS_PASSWORD"),
		})
		if err != nil {
			log.Fatalf("Failed to connect history store: %v", err)
		}
		defer store.Close()
		server.History = store
	}

	mux := http.NewServeMux()
	server.Routes(mux)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Trade Intent gateway v%s listening on :%s (wallet %s)",
		version.Version(), port, signer.Address().Hex())
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// buildRegistry starts from the built-in chain set and applies per-chain RPC
// overrides like MAINNET_RPC_URL or SEPOLIA_RPC_URL.
func buildRegistry() *chains.Registry {
	registry := chains.DefaultRegistry()
	for _, name := range registry.Names() {
		envKey := fmt.Sprintf("%s_RPC_URL", toEnvName(name))
		if override := os.Getenv(envKey); override != "" {
			if cfg, err := registry.Resolve(name); err == nil {
				cfg.RPCURL = override
			}
		}
	}
	return registry
}

func toEnvName(chain string) string {
	out := make([]rune, 0, len(chain))
	for _, r := range chain {
		if r >= 'a' && r <= 'z' {
			r -= 'a' - 'A'
		}
		out = append(out, r)
	}
	return string(out)
}

// buildClassifier prefers a dedicated classification service and falls back
// to the OpenAI API.
func buildClassifier() (intent.Classifier, error) {
	if url := os.Getenv("CLASSIFIER_URL"); url != "" {
		return intent.NewHTTPClassifier(url), nil
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return intent.NewOpenAIClassifier(key, os.Getenv("OPENAI_MODEL")), nil
	}
	return nil, fmt.Errorf("set CLASSIFIER_URL or OPENAI_API_KEY")
}
