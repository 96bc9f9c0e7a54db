package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ellavondegurechaff/minehye/minehye/expedition"
	"golang.org/x/sync/errgroup"
)

// ArchiveService ships collection reports to an S3-compatible bucket for
// offline analysis. Archiving is strictly best-effort: a dead bucket must
// never block a player's collect.
type ArchiveService struct {
	client *s3.Client
	bucket string
	region string
}

// NewArchiveService builds the service, or nil when no bucket is configured.
// A nil *ArchiveService is safe to call.
func NewArchiveService(key, secret, region, bucket string) *ArchiveService {
	if bucket == "" {
		return nil
	}

	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL: fmt.Sprintf("https://%s.digitaloceanspaces.com", region),
		}, nil
	})

	cfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithEndpointResolverWithOptions(resolver),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(key, secret, "")),
		awsconfig.WithRegion(region),
	)
	if err != nil {
		slog.Error("Failed to load Spaces config, archiving disabled",
			slog.Any("error", err))
		return nil
	}

	return &ArchiveService{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		region: region,
	}
}

type archivedOutcome struct {
	ExpeditionID    int64     `json:"expedition_id"`
	UserID          string    `json:"user_id"`
	Rank            string    `json:"rank"`
	BaseReward      int       `json:"base_reward"`
	HeroBonusReward int       `json:"hero_bonus_reward"`
	GearBonusReward int       `json:"gear_bonus_reward"`
	Reward          int64     `json:"reward"`
	Wiped           bool      `json:"wiped"`
	Deaths          int       `json:"deaths"`
	CollectedAt     time.Time `json:"collected_at"`
}

// ArchiveCollection uploads one JSON object per collected expedition,
// concurrently. Callers log the returned error; nothing downstream depends
// on it.
func (s *ArchiveService) ArchiveCollection(ctx context.Context, userID string, result *expedition.CollectResult) error {
	if s == nil || result == nil || len(result.Outcomes) == 0 {
		return nil
	}

	now := time.Now().UTC()
	g, ctx := errgroup.WithContext(ctx)
	for _, outcome := range result.Outcomes {
		outcome := outcome
		g.Go(func() error {
			deaths := 0
			for _, h := range outcome.Heroes {
				if h.Died {
					deaths++
				}
			}
			body, err := json.Marshal(archivedOutcome{
				ExpeditionID:    outcome.ExpeditionID,
				UserID:          userID,
				Rank:            outcome.Rank,
				BaseReward:      outcome.BaseReward,
				HeroBonusReward: outcome.HeroBonusReward,
				GearBonusReward: outcome.GearBonusReward,
				Reward:          outcome.Reward,
				Wiped:           outcome.Wiped,
				Deaths:          deaths,
				CollectedAt:     now,
			})
			if err != nil {
				return fmt.Errorf("marshal outcome %d: %w", outcome.ExpeditionID, err)
			}

			key := fmt.Sprintf("expeditions/%s/%s-%d.json", userID, now.Format("20060102T150405"), outcome.ExpeditionID)
			_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
				Bucket:      &s.bucket,
				Key:         &key,
				Body:        bytes.NewReader(body),
				ContentType: aws.String("application/json"),
			})
			if err != nil {
				return fmt.Errorf("upload outcome %d: %w", outcome.ExpeditionID, err)
			}
			return nil
		})
	}
	return g.Wait()
}
