package state

import (
	"math/rand"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habhabhabs/aws-inventag/internal/models"
)

// recordSet builds n distinct records deterministically from a seed
func recordSet(seed int64, n int) []models.Resource {
	rng := rand.New(rand.NewSource(seed))
	services := []string{"EC2", "S3", "RDS", "LAMBDA"}
	regions := []string{"us-east-1", "eu-west-1"}
	records := make([]models.Resource, n)
	for i := range records {
		records[i] = models.Resource{
			ResourceID: string(rune('a'+i%26)) + "-id",
			Service:    services[rng.Intn(len(services))],
			Type:       "Thing",
			Region:     regions[rng.Intn(len(regions))],
			AccountID:  "111111111111",
			Tags:       map[string]string{"Environment": "prod"},
		}
	}
	return records
}

// Checksums ignore record order entirely.
func TestChecksumStableUnderShuffle(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("checksum(records) == checksum(shuffled(records))", prop.ForAll(
		func(seed int64, n int) bool {
			records := recordSet(seed, n)
			original, err := Checksum(records)
			if err != nil {
				return false
			}

			shuffled := make([]models.Resource, len(records))
			copy(shuffled, records)
			rng := rand.New(rand.NewSource(seed + 1))
			rng.Shuffle(len(shuffled), func(i, j int) {
				shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
			})

			after, err := Checksum(shuffled)
			return err == nil && original == after
		},
		gen.Int64(),
		gen.IntRange(0, 20),
	))

	properties.TestingRun(t)
}

func TestChecksumSensitiveToContent(t *testing.T) {
	base := recordSet(42, 5)
	original, err := Checksum(base)
	require.NoError(t, err)

	changed := make([]models.Resource, len(base))
	copy(changed, base)
	changed[0].Tags = map[string]string{"Environment": "staging"}

	after, err := Checksum(changed)
	require.NoError(t, err)
	assert.NotEqual(t, original, after)
}

func TestChecksumEmptySet(t *testing.T) {
	sum1, err := Checksum(nil)
	require.NoError(t, err)
	sum2, err := Checksum([]models.Resource{})
	require.NoError(t, err)
	assert.Equal(t, sum1, sum2)
	assert.Len(t, sum1, 64)
}

func TestRecordChecksumDetectsFieldChanges(t *testing.T) {
	record := models.Resource{
		ResourceID: "i-1", Service: "EC2", Region: "us-east-1",
		Tags: map[string]string{"Env": "prod"},
	}
	sum1, err := RecordChecksum(record)
	require.NoError(t, err)

	record.Status = "stopped"
	sum2, err := RecordChecksum(record)
	require.NoError(t, err)
	assert.NotEqual(t, sum1, sum2)
}
