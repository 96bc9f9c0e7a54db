package migration

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoAccount is a player account document from the legacy bot.
type MongoAccount struct {
	ID        primitive.ObjectID `bson:"_id"`
	DiscordID string             `bson:"discord_id"`
	Username  string             `bson:"username"`
	Tokens    float64            `bson:"tokens"` // Use float64 to handle double and int
	Joined    time.Time          `bson:"joined"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

// MongoHero is a hero document from the legacy bot. Trait data is either a
// packed three-digit code plus explicit percent fields, or (for the oldest
// records) only a free-text description.
type MongoHero struct {
	ID           primitive.ObjectID `bson:"_id"`
	UserID       string             `bson:"userid"`
	Name         string             `bson:"name"`
	Rarity       int32              `bson:"rarity"`
	Species      string             `bson:"species"`
	HP           float64            `bson:"hp"`
	MaxHP        float64            `bson:"maxhp"`
	TraitName    string             `bson:"traitname"`
	TraitCode    *int32             `bson:"traitcode"` // *int32 to handle nulls
	TraitDesc    string             `bson:"traitdesc"`
	RewardPct    int32              `bson:"rewardpct"`
	SpeedPct     int32              `bson:"speedpct"`
	ReductionPct int32              `bson:"reductionpct"`
	TeamScope    bool               `bson:"teamscope"`
	Obtained     time.Time          `bson:"obtained"`
	UpdatedAt    time.Time          `bson:"updated_at"`
}

// MongoGear is a gear document from the legacy bot.
type MongoGear struct {
	ID          primitive.ObjectID `bson:"_id"`
	UserID      string             `bson:"userid"`
	Name        string             `bson:"name"`
	Slot        string             `bson:"slot"`
	Rarity      int32              `bson:"rarity"`
	Bonus       int32              `bson:"bonus"`
	Enhancement int32              `bson:"enhancement"`
	Obtained    time.Time          `bson:"obtained"`
	UpdatedAt   time.Time          `bson:"updated_at"`
}

// MigrationStats tracks migration progress and issues
type MigrationStats struct {
	Tables         map[string]*TableStats `json:"tables"`
	StartTime      time.Time              `json:"start_time"`
	EndTime        time.Time              `json:"end_time"`
	TotalErrors    int                    `json:"total_errors"`
	TotalSkipped   int                    `json:"total_skipped"`
	TotalProcessed int                    `json:"total_processed"`
}

// TableStats tracks stats for individual tables
type TableStats struct {
	TableName  string `json:"table_name"`
	Processed  int    `json:"processed"`
	Successful int    `json:"successful"`
	Skipped    int    `json:"skipped"`
	Errors     int    `json:"errors"`
}
