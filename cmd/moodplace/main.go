package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/moodplace/moodplace/ai"
	"github.com/moodplace/moodplace/ai/metrics"
	"github.com/moodplace/moodplace/internal/profile"
	"github.com/moodplace/moodplace/internal/version"
	"github.com/moodplace/moodplace/plugin/places"
	"github.com/moodplace/moodplace/recommend"
	"github.com/moodplace/moodplace/server"
	apiv1 "github.com/moodplace/moodplace/server/router/api/v1"
	"github.com/moodplace/moodplace/store"
	"github.com/moodplace/moodplace/store/db"
)

var rootCmd = &cobra.Command{
	Use:   "moodplace",
	Short: `An emotion-aware place recommendation service. Hybrid vector and keyword ranking over saved and discovered places.`,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		_ = godotenv.Load()
		return nil
	},
	Run: func(_ *cobra.Command, _ []string) {
		instanceProfile, err := loadProfile()
		if err != nil {
			slog.Error("failed to load profile", "error", err)
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		storeInstance, err := openStore(ctx, instanceProfile)
		if err != nil {
			slog.Error("failed to open store", "error", err)
			return
		}

		exporter := metrics.NewExporter()
		ranker := newRanker(instanceProfile, storeInstance, exporter)

		apiService := apiv1.NewAPIV1Service(instanceProfile, storeInstance, ranker)
		s, err := server.NewServer(ctx, instanceProfile, storeInstance, apiService, exporter)
		if err != nil {
			slog.Error("failed to create server", "error", err)
			return
		}

		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-c
			s.Shutdown(ctx)
			cancel()
		}()

		printGreetings(instanceProfile)
		if err := s.Start(ctx); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				slog.Error("failed to start server", "error", err)
				return
			}
		}

		<-ctx.Done()
	},
}

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Build embeddings for stored places that lack one",
	RunE: func(cmd *cobra.Command, _ []string) error {
		instanceProfile, err := loadProfile()
		if err != nil {
			return err
		}
		if !instanceProfile.IsAIEnabled() {
			return errors.New("embedding API key is not configured")
		}

		ctx := cmd.Context()
		storeInstance, err := openStore(ctx, instanceProfile)
		if err != nil {
			return err
		}
		defer storeInstance.Close()

		ranker := newRanker(instanceProfile, storeInstance, nil)

		placeList, err := storeInstance.ListPlaces(ctx, &store.FindPlace{})
		if err != nil {
			return err
		}

		aiConfig := ai.NewConfigFromProfile(instanceProfile)
		model := aiConfig.Embedding.Model
		built, skipped := 0, 0
		for _, place := range placeList {
			existing, err := storeInstance.ListPlaceEmbeddings(ctx, &store.FindPlaceEmbedding{
				PlaceID: &place.ID,
				Model:   &model,
			})
			if err != nil {
				return err
			}
			if len(existing) > 0 {
				skipped++
				continue
			}
			if _, err := ranker.UpsertPlaceEmbedding(ctx, place); err != nil {
				slog.Warn("failed to embed place", "place", place.Name, "error", err)
				continue
			}
			built++
		}

		slog.Info("embedding build finished", "built", built, "skipped", skipped, "total", len(placeList))
		return nil
	},
}

func loadProfile() (*profile.Profile, error) {
	instanceProfile := &profile.Profile{
		Mode:    viper.GetString("mode"),
		Addr:    viper.GetString("addr"),
		Port:    viper.GetInt("port"),
		Data:    viper.GetString("data"),
		Driver:  viper.GetString("driver"),
		DSN:     viper.GetString("dsn"),
		Version: version.GetCurrentVersion(viper.GetString("mode")),
	}
	instanceProfile.FromEnv()
	if err := instanceProfile.Validate(); err != nil {
		return nil, err
	}
	return instanceProfile, nil
}

func openStore(ctx context.Context, instanceProfile *profile.Profile) (*store.Store, error) {
	dbDriver, err := db.NewDBDriver(instanceProfile)
	if err != nil {
		return nil, err
	}
	storeInstance := store.New(dbDriver, instanceProfile)
	if err := storeInstance.Migrate(ctx); err != nil {
		return nil, err
	}
	return storeInstance, nil
}

func newRanker(instanceProfile *profile.Profile, storeInstance *store.Store, exporter *metrics.Exporter) *recommend.Ranker {
	aiConfig := ai.NewConfigFromProfile(instanceProfile)

	deps := recommend.Deps{
		Store:  storeInstance,
		Logger: slog.Default(),
	}
	if aiConfig.Enabled {
		deps.Embedder = ai.NewEmbeddingService(&aiConfig.Embedding)
		deps.Text = ai.NewTextService(&aiConfig.Chat)
	}
	if instanceProfile.PlacesAPIKey != "" {
		client := places.NewClient(instanceProfile.PlacesAPIKey)
		deps.Places = client
		deps.Details = client
	}
	if exporter != nil {
		deps.Metrics = exporter
	}

	return recommend.NewRanker(deps, recommend.DefaultOptions())
}

func printGreetings(p *profile.Profile) {
	fmt.Printf(greetingBanner, p.Version)
	fmt.Printf("version %s has been started on port %d\n", p.Version, p.Port)
	fmt.Println("---")
}

const greetingBanner = `
 __  __  ___   ___  ____  ____  _        _    ____ _____
|  \/  |/ _ \ / _ \|  _ \|  _ \| |      / \  / ___| ____|
| |\/| | | | | | | | | | | |_) | |     / _ \| |   |  _|
| |  | | |_| | |_| | |_| |  __/| |___ / ___ \ |___| |___
|_|  |_|\___/ \___/|____/|_|   |_____/_/   \_\____|_____|

%s
`

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("port", 8081)

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 8081, "port of server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver (sqlite, postgres)")
	rootCmd.PersistentFlags().String("dsn", "", "database source name(aka. DSN)")

	for _, flag := range []string{"mode", "addr", "port", "data", "driver", "dsn"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("moodplace")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	rootCmd.AddCommand(embedCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
