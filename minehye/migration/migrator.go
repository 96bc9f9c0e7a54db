package migration

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ellavondegurechaff/minehye/minehye/database/models"
	"github.com/uptrace/bun"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Migrator moves legacy bot data into Postgres. It reads either BSON dump
// files from a data directory or a live MongoDB database, converts each
// document to the structured models, and batch-inserts.
//
// Hero trait resolution is strict: a hero whose trait cannot be decoded from
// its packed code or parsed out of its description fails the whole run. The
// failures land in unresolved_traits.log so the dump can be fixed up and
// re-run.
type Migrator struct {
	pgDB      *bun.DB
	dataDir   string
	batchSize int
	stats     MigrationStats

	// Optional direct Mongo access
	mongoDB *mongo.Database

	// Mongo collection names (overrideable)
	collNames map[string]string
}

func NewMigrator(pgDB *bun.DB, dataDir string) *Migrator {
	return &Migrator{
		pgDB:      pgDB,
		dataDir:   dataDir,
		batchSize: 1000,
		stats: MigrationStats{
			Tables:    make(map[string]*TableStats),
			StartTime: time.Now(),
		},
		collNames: map[string]string{
			"accounts": "accounts",
			"heroes":   "heroes",
			"gear":     "gear",
		},
	}
}

// SetBatchSize overrides the default batch size for inserts (useful for poolers/timeouts)
func (m *Migrator) SetBatchSize(size int) {
	if size > 0 {
		m.batchSize = size
	}
}

// UseMongo enables direct-from-Mongo migration mode
func (m *Migrator) UseMongo(client *mongo.Client, dbName string) {
	if client != nil && dbName != "" {
		m.mongoDB = client.Database(dbName)
	}
}

// SetMongoCollectionName overrides the collection name for a given kind.
func (m *Migrator) SetMongoCollectionName(kind, name string) {
	if kind != "" && name != "" {
		m.collNames[kind] = name
	}
}

func (m *Migrator) getColl(kind string) *mongo.Collection {
	if m.mongoDB == nil {
		return nil
	}
	return m.mongoDB.Collection(m.collNames[kind])
}

// MigrateAll runs the full BSON-dump migration. Order preserves referential
// integrity: accounts first, then the heroes and gear that reference them.
func (m *Migrator) MigrateAll(ctx context.Context) error {
	logProgress("Starting BSON dump migration")
	logProgress(fmt.Sprintf("Data directory: %s", m.dataDir))

	m.stats.StartTime = time.Now()

	steps := []struct {
		name    string
		migrate func(context.Context) error
	}{
		{"accounts", m.MigrateAccounts},
		{"heroes", m.MigrateHeroes},
		{"gear", m.MigrateGear},
	}

	for _, step := range steps {
		logProgress(fmt.Sprintf("Starting migration step: %s", step.name))
		if err := step.migrate(ctx); err != nil {
			return fmt.Errorf("migration failed at step %s: %w", step.name, err)
		}
		logProgress(fmt.Sprintf("Completed migration step: %s", step.name))
	}

	m.stats.EndTime = time.Now()
	if err := m.generateReport(); err != nil {
		slog.Error("Failed to generate migration report", "error", err)
	}

	logProgress("Migration completed successfully!")
	m.logFinalStats()
	return nil
}

// MigrateAllFromMongo migrates data directly from a live MongoDB database
func (m *Migrator) MigrateAllFromMongo(ctx context.Context) error {
	if m.mongoDB == nil {
		return fmt.Errorf("mongoDB not configured; call UseMongo first")
	}

	logProgress("Starting direct MongoDB migration")
	m.stats.StartTime = time.Now()

	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"accounts_mongo", m.MigrateAccountsFromMongo},
		{"heroes_mongo", m.MigrateHeroesFromMongo},
		{"gear_mongo", m.MigrateGearFromMongo},
	}

	for _, s := range steps {
		logProgress(fmt.Sprintf("Starting migration step: %s", s.name))
		if err := s.fn(ctx); err != nil {
			return fmt.Errorf("migration failed at step %s: %w", s.name, err)
		}
		logProgress(fmt.Sprintf("Completed migration step: %s", s.name))
	}

	m.stats.EndTime = time.Now()
	if err := m.generateReport(); err != nil {
		slog.Error("Failed to generate migration report", "error", err)
	}

	logProgress("Direct Mongo migration completed successfully!")
	m.logFinalStats()
	return nil
}

func (m *Migrator) MigrateAccounts(ctx context.Context) error {
	path := filepath.Join(m.dataDir, "accounts.bson")
	var accounts []MongoAccount
	if err := readBSONFile(path, func(doc []byte) error {
		var ma MongoAccount
		if err := bson.Unmarshal(doc, &ma); err != nil {
			return fmt.Errorf("failed to decode account BSON: %w", err)
		}
		accounts = append(accounts, ma)
		return nil
	}); err != nil {
		return err
	}
	slog.Info("Loaded accounts from BSON file", "count", len(accounts))
	return m.processAccounts(ctx, accounts)
}

func (m *Migrator) MigrateAccountsFromMongo(ctx context.Context) error {
	col := m.getColl("accounts")
	cur, err := col.Find(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("failed to query accounts: %w", err)
	}
	defer cur.Close(ctx)

	var accounts []MongoAccount
	for cur.Next(ctx) {
		var ma MongoAccount
		if err := cur.Decode(&ma); err == nil {
			accounts = append(accounts, ma)
		}
	}
	if err := cur.Err(); err != nil {
		return err
	}
	return m.processAccounts(ctx, accounts)
}

func (m *Migrator) processAccounts(ctx context.Context, accounts []MongoAccount) error {
	ts := m.tableStats("users")
	ts.Processed = len(accounts)

	// Deduplicate on discord_id, keeping the latest record.
	byDiscordID := make(map[string]*models.User)
	duplicates := 0
	for _, ma := range accounts {
		user := m.convertAccount(ma)
		if user.DiscordID == "" {
			ts.Skipped++
			continue
		}
		if _, exists := byDiscordID[user.DiscordID]; exists {
			duplicates++
			logProgress(fmt.Sprintf("Duplicate Discord ID found: %s (keeping latest record)", user.DiscordID))
		}
		byDiscordID[user.DiscordID] = user
	}

	var users []*models.User
	for _, u := range byDiscordID {
		users = append(users, u)
	}

	for i := 0; i < len(users); i += m.batchSize {
		end := i + m.batchSize
		if end > len(users) {
			end = len(users)
		}
		batch := users[i:end]
		_, err := m.pgDB.NewInsert().
			Model(&batch).
			On("CONFLICT (discord_id) DO UPDATE").
			Set("username = EXCLUDED.username").
			Set("tokens = EXCLUDED.tokens").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			ts.Errors += len(batch)
			return fmt.Errorf("failed to insert account batch: %w", err)
		}
		ts.Successful += len(batch)
		slog.Info("Inserted batch of accounts",
			"batchSize", len(batch),
			"progress", fmt.Sprintf("%d/%d", end, len(users)))
	}

	logProgress(fmt.Sprintf("Account migration completed: %d total input records, %d unique accounts imported, %d duplicate Discord IDs handled",
		len(accounts), len(users), duplicates))
	return nil
}

func (m *Migrator) MigrateHeroes(ctx context.Context) error {
	path := filepath.Join(m.dataDir, "heroes.bson")
	var heroes []MongoHero
	if err := readBSONFile(path, func(doc []byte) error {
		var mh MongoHero
		if err := bson.Unmarshal(doc, &mh); err != nil {
			return fmt.Errorf("failed to decode hero BSON: %w", err)
		}
		heroes = append(heroes, mh)
		return nil
	}); err != nil {
		return err
	}
	slog.Info("Loaded heroes from BSON file", "count", len(heroes))
	return m.processHeroes(ctx, heroes)
}

func (m *Migrator) MigrateHeroesFromMongo(ctx context.Context) error {
	col := m.getColl("heroes")
	cur, err := col.Find(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("failed to query heroes: %w", err)
	}
	defer cur.Close(ctx)

	var heroes []MongoHero
	for cur.Next(ctx) {
		var mh MongoHero
		if err := cur.Decode(&mh); err == nil {
			heroes = append(heroes, mh)
		}
	}
	if err := cur.Err(); err != nil {
		return err
	}
	return m.processHeroes(ctx, heroes)
}

// processHeroes converts and inserts heroes. Trait resolution failures are
// collected, logged to unresolved_traits.log, and fail the run: a hero without
// its trait is not a hero worth migrating silently.
func (m *Migrator) processHeroes(ctx context.Context, mongoHeroes []MongoHero) error {
	ts := m.tableStats("heroes")
	ts.Processed = len(mongoHeroes)

	logFile, err := os.Create("unresolved_traits.log")
	if err != nil {
		return fmt.Errorf("failed to create unresolved traits log file: %w", err)
	}
	defer logFile.Close()
	if _, err := fmt.Fprintf(logFile, "timestamp,user_id,hero_name,error\n"); err != nil {
		return fmt.Errorf("failed to write header to log file: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	var heroes []*models.Hero
	unresolved := 0

	for _, mh := range mongoHeroes {
		if mh.UserID == "" {
			ts.Skipped++
			continue
		}
		hero, convErr := m.convertHero(mh)
		if convErr != nil {
			unresolved++
			ts.Errors++
			_, _ = fmt.Fprintf(logFile, "%s,%s,%s,%v\n", timestamp, mh.UserID, mh.Name, convErr)
			continue
		}
		heroes = append(heroes, hero)

		if len(heroes) >= m.batchSize {
			if err := m.batchInsertHeroes(ctx, heroes); err != nil {
				return err
			}
			ts.Successful += len(heroes)
			logProgress(fmt.Sprintf("Processed %d heroes, %d unresolved so far", len(heroes), unresolved))
			heroes = heroes[:0]
		}
	}

	if len(heroes) > 0 {
		if err := m.batchInsertHeroes(ctx, heroes); err != nil {
			return err
		}
		ts.Successful += len(heroes)
	}

	if unresolved > 0 {
		_, _ = fmt.Fprintf(logFile, "\nSummary:\nTotal unresolved: %d\nTimestamp: %s\n", unresolved, timestamp)
		return fmt.Errorf("%d heroes have unresolvable traits; see unresolved_traits.log", unresolved)
	}

	logProgress(fmt.Sprintf("Hero migration completed: %d heroes imported", ts.Successful))
	return nil
}

func (m *Migrator) batchInsertHeroes(ctx context.Context, heroes []*models.Hero) error {
	startTime := time.Now()
	_, err := m.pgDB.NewInsert().
		Model(&heroes).
		Exec(ctx)
	if err != nil {
		slog.Error("Batch insert of heroes failed",
			"error", err,
			"duration", time.Since(startTime))
		return fmt.Errorf("failed to insert hero batch: %w", err)
	}
	return nil
}

func (m *Migrator) MigrateGear(ctx context.Context) error {
	path := filepath.Join(m.dataDir, "gear.bson")
	if _, err := os.Stat(path); err != nil {
		logProgress("gear.bson not found, skipping gear migration")
		return nil
	}
	var gear []MongoGear
	if err := readBSONFile(path, func(doc []byte) error {
		var mg MongoGear
		if err := bson.Unmarshal(doc, &mg); err != nil {
			return fmt.Errorf("failed to decode gear BSON: %w", err)
		}
		gear = append(gear, mg)
		return nil
	}); err != nil {
		return err
	}
	slog.Info("Loaded gear from BSON file", "count", len(gear))
	return m.processGear(ctx, gear)
}

func (m *Migrator) MigrateGearFromMongo(ctx context.Context) error {
	col := m.getColl("gear")
	cur, err := col.Find(ctx, bson.D{})
	if err != nil {
		logProgress("gear collection not found; skipping")
		return nil
	}
	defer cur.Close(ctx)

	var gear []MongoGear
	for cur.Next(ctx) {
		var mg MongoGear
		if err := cur.Decode(&mg); err == nil {
			gear = append(gear, mg)
		}
	}
	if err := cur.Err(); err != nil {
		return err
	}
	return m.processGear(ctx, gear)
}

func (m *Migrator) processGear(ctx context.Context, mongoGear []MongoGear) error {
	ts := m.tableStats("gear")
	ts.Processed = len(mongoGear)

	var batch []*models.Gear
	for _, mg := range mongoGear {
		if mg.UserID == "" {
			ts.Skipped++
			continue
		}
		batch = append(batch, m.convertGear(mg))
		if len(batch) >= m.batchSize {
			if _, err := m.pgDB.NewInsert().Model(&batch).Exec(ctx); err != nil {
				return fmt.Errorf("failed to insert gear batch: %w", err)
			}
			ts.Successful += len(batch)
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if _, err := m.pgDB.NewInsert().Model(&batch).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert gear batch: %w", err)
		}
		ts.Successful += len(batch)
	}

	logProgress(fmt.Sprintf("Gear migration completed: %d pieces imported", ts.Successful))
	return nil
}

// readBSONFile streams length-prefixed BSON documents from a mongodump file.
func readBSONFile(path string, handle func(doc []byte) error) error {
	file, err := os.Open(path)
	if err != nil {
		slog.Error("Failed to open BSON file", "path", path, "error", err)
		return fmt.Errorf("failed to open BSON file %s: %w", path, err)
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	for {
		// Each BSON document starts with an int32 length
		lengthBytes := make([]byte, 4)
		_, err := io.ReadFull(reader, lengthBytes)
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read document length: %w", err)
		}

		length := int32(binary.LittleEndian.Uint32(lengthBytes))
		if length <= 0 {
			return fmt.Errorf("invalid document length: %d", length)
		}

		// The length includes the 4 bytes of the length itself
		docBytes := make([]byte, length-4)
		if _, err := io.ReadFull(reader, docBytes); err != nil {
			return fmt.Errorf("failed to read document bytes: %w", err)
		}

		fullDocBytes := append(lengthBytes, docBytes...)
		if err := handle(fullDocBytes); err != nil {
			return err
		}
	}
	return nil
}

func (m *Migrator) tableStats(name string) *TableStats {
	if m.stats.Tables == nil {
		m.stats.Tables = make(map[string]*TableStats)
	}
	ts, ok := m.stats.Tables[name]
	if !ok {
		ts = &TableStats{TableName: name}
		m.stats.Tables[name] = ts
	}
	return ts
}

func (m *Migrator) generateReport() error {
	for _, ts := range m.stats.Tables {
		m.stats.TotalProcessed += ts.Processed
		m.stats.TotalSkipped += ts.Skipped
		m.stats.TotalErrors += ts.Errors
	}
	data, err := json.MarshalIndent(m.stats, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile("migration_report.json", data, 0o644)
}

func (m *Migrator) logFinalStats() {
	slog.Info("Migration statistics",
		"duration", m.stats.EndTime.Sub(m.stats.StartTime).String(),
		"processed", m.stats.TotalProcessed,
		"skipped", m.stats.TotalSkipped,
		"errors", m.stats.TotalErrors)
}

func logProgress(msg string) {
	slog.Info(msg, "component", "migration")
}
