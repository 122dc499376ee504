package boot

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"sync"
	"time"

	"festreg/src/lib"
	"festreg/src/models"

	"github.com/go-co-op/gocron/v2"
)

const catalogCacheKey = "catalog:events"

var (
	catalogMu sync.RWMutex
	catalog   models.Catalog
)

// GetCatalog returns the cached event catalog, falling back to the redis
// copy when memory is cold.
func GetCatalog() models.Catalog {
	catalogMu.RLock()
	if catalog != nil {
		defer catalogMu.RUnlock()
		return catalog
	}
	catalogMu.RUnlock()

	rd := lib.GetRedisClient()
	if rd == nil {
		return nil
	}
	raw, err := rd.Get(context.Background(), catalogCacheKey).Result()
	if err != nil {
		return nil
	}
	var cached models.Catalog
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		log.Printf("Error decoding cached catalog: %s\n", err.Error())
		return nil
	}
	SetCatalog(cached)
	return cached
}

// SetCatalog replaces the in-memory catalog; used at refresh time and by
// tests.
func SetCatalog(c models.Catalog) {
	catalogMu.Lock()
	catalog = c
	catalogMu.Unlock()
}

// RefreshCatalog pulls the catalog from the backend and caches it in
// memory and redis. When the backend is unreachable and a CATALOG_FILE
// fixture is configured, the fixture seeds the catalog instead.
func RefreshCatalog() error {
	bc := lib.GetBackendClient()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	fresh, err := bc.FetchCatalog(ctx)
	if err != nil {
		log.Printf("Error refreshing event catalog: %s\n", err.Error())
		if seeded := seedCatalogFromFile(); seeded {
			return nil
		}
		return err
	}
	SetCatalog(fresh)
	if rd := lib.GetRedisClient(); rd != nil {
		raw, err := json.Marshal(fresh)
		if err == nil {
			rd.Set(context.Background(), catalogCacheKey, string(raw), 0)
		}
	}
	log.Printf("Event catalog refreshed: %d events\n", len(fresh))
	return nil
}

func seedCatalogFromFile() bool {
	file := os.Getenv("CATALOG_FILE")
	if file == "" {
		return false
	}
	raw, err := os.ReadFile(file)
	if err != nil {
		log.Printf("Error reading catalog fixture [%s]: %s\n", file, err.Error())
		return false
	}
	var fixture models.Catalog
	if err := json.Unmarshal(raw, &fixture); err != nil {
		log.Printf("Error decoding catalog fixture [%s]: %s\n", file, err.Error())
		return false
	}
	SetCatalog(fixture)
	log.Printf("Event catalog seeded from fixture: %d events\n", len(fixture))
	return true
}

// InitScheduler starts the periodic jobs: catalog refresh, a redis
// health ping, and any sweep functions the caller hands in (run every
// 10 minutes).
func InitScheduler(sweepers ...func()) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		log.Printf("Error initializing Scheduler: %s\n", err.Error())
		return
	}
	_, err = sched.NewJob(
		gocron.DurationJob(10*time.Minute),
		gocron.NewTask(func() {
			RefreshCatalog()
		}),
	)
	if err != nil {
		log.Printf("Error scheduling catalog refresh: %s\n", err.Error())
	}
	_, err = sched.NewJob(
		gocron.DurationJob(time.Minute),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			lib.PingRedis(ctx)
		}),
	)
	if err != nil {
		log.Printf("Error scheduling redis ping: %s\n", err.Error())
	}
	for _, sweep := range sweepers {
		_, err = sched.NewJob(
			gocron.DurationJob(10*time.Minute),
			gocron.NewTask(sweep),
		)
		if err != nil {
			log.Printf("Error scheduling sweep job: %s\n", err.Error())
		}
	}
	sched.Start()
}
