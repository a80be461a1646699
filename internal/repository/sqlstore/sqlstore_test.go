package sqlstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v4"

	"vapi/internal/domain/entities"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()

	db, err := Open(ctx, SQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate(ctx))
	// Running it twice must be harmless.
	require.NoError(t, db.Migrate(ctx))
	return db
}

func report(cell string, side entities.Side, bucket entities.CountBucket, created time.Time, userID string) *entities.ParkingReport {
	return &entities.ParkingReport{
		Cell:        cell,
		Side:        side,
		Lat:         -34.6037,
		Lng:         -58.3816,
		CountBucket: bucket,
		UserID:      userID,
		Confidence:  1.0,
		ExpiresAt:   created.Add(entities.ReportTTL),
		Source:      entities.ReportSourceUser,
		CreatedAt:   created,
	}
}

func TestOpen_RejectsUnknownDialect(t *testing.T) {
	_, err := Open(context.Background(), Dialect("oracle"), "")
	assert.Error(t, err)
}

func TestRebind(t *testing.T) {
	pg := &DB{Dialect: Postgres}
	lite := &DB{Dialect: SQLite}

	q := "SELECT * FROM t WHERE a = ? AND b > ?"
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b > $2", pg.rebind(q))
	assert.Equal(t, q, lite.rebind(q))
}

func TestReportStore_QueryByPrefix(t *testing.T) {
	store := NewReportStore(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, report("69y7pk", entities.SideWest, entities.CountBucketOne, base.Add(2*time.Second), "u1")))
	require.NoError(t, store.Put(ctx, report("69y7pk", entities.SideEast, entities.CountBucketFew, base, "")))
	require.NoError(t, store.Put(ctx, report("69y7pk", entities.SideEast, entities.CountBucketPlenty, base.Add(time.Second), "u2")))
	require.NoError(t, store.Put(ctx, report("69y7pm", entities.SideEast, entities.CountBucketOne, base, "u1")))

	got, err := store.QueryByPrefix(ctx, "69y7pk")
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "69y7pk#E", got[0].PartitionKey())
	assert.Equal(t, entities.CountBucketFew, got[0].CountBucket)
	assert.Empty(t, got[0].UserID)
	assert.Equal(t, "69y7pk#E", got[1].PartitionKey())
	assert.Equal(t, "u2", got[1].UserID)
	assert.Equal(t, "69y7pk#W", got[2].PartitionKey())

	assert.True(t, got[0].CreatedAt.Equal(base))
	assert.True(t, got[0].ExpiresAt.Equal(base.Add(entities.ReportTTL)))
	assert.Equal(t, entities.ReportSourceUser, got[0].Source)
	assert.InDelta(t, -34.6037, got[0].Lat, 1e-9)

	none, err := store.QueryByPrefix(ctx, "zzzzzz")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestReportStore_PrefixIsLiteral(t *testing.T) {
	store := NewReportStore(newTestDB(t))
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, report("69y7pk", entities.SideNorth, entities.CountBucketOne, base, "")))

	got, err := store.QueryByPrefix(ctx, "69y7p_")
	require.NoError(t, err)
	assert.Empty(t, got, "underscore must not act as a wildcard")
}

func TestReportStore_QueryByUserSince(t *testing.T) {
	store := NewReportStore(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, report("69y7pk", entities.SideNorth, entities.CountBucketOne, base, "u1")))
	require.NoError(t, store.Put(ctx, report("69y7pk", entities.SideSouth, entities.CountBucketOne, base.Add(10*time.Second), "u1")))
	require.NoError(t, store.Put(ctx, report("69y7pk", entities.SideEast, entities.CountBucketOne, base.Add(10*time.Second), "u2")))

	got, err := store.QueryByUserSince(ctx, "u1", base)
	require.NoError(t, err)
	require.Len(t, got, 1, "since is exclusive")
	assert.Equal(t, entities.SideSouth, got[0].Side)

	got, err = store.QueryByUserSince(ctx, "u1", base.Add(-time.Second))
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestReportStore_PurgeExpired(t *testing.T) {
	store := NewReportStore(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, report("69y7pk", entities.SideNorth, entities.CountBucketOne, base, "")))
	require.NoError(t, store.Put(ctx, report("69y7pk", entities.SideNorth, entities.CountBucketOne, base.Add(10*time.Minute), "")))

	n, err := store.PurgeExpired(ctx, base.Add(20*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	left, err := store.QueryByPrefix(ctx, "69y7pk")
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.True(t, left[0].CreatedAt.Equal(base.Add(10*time.Minute)))
}

func TestSessionRepository(t *testing.T) {
	repo := NewSessionRepository(newTestDB(t))
	ctx := context.Background()

	open, err := repo.FindOpen(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, open)

	s := &entities.ParkingSession{UserID: "u1", StartTs: base, CarLat: 10, CarLng: 20, Note: null.StringFrom("by the bakery")}
	require.NoError(t, repo.Put(ctx, s))

	open, err = repo.FindOpen(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.True(t, open.StartTs.Equal(base))
	assert.Equal(t, "by the bakery", open.Note.String)
	assert.True(t, open.IsOpen())

	open.End(base.Add(time.Hour))
	require.NoError(t, repo.Put(ctx, open))

	open, err = repo.FindOpen(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, open)
}

func TestConfirmationRepository(t *testing.T) {
	repo := NewConfirmationRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &entities.Confirmation{ReportID: "r1", UserID: "u2", Status: entities.ConfirmationTaken, CreatedAt: base.Add(time.Second)}))
	require.NoError(t, repo.Create(ctx, &entities.Confirmation{ReportID: "r1", UserID: "u1", Status: entities.ConfirmationStillFree, CreatedAt: base}))

	list, err := repo.ListByReport(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "u1", list[0].UserID)
	assert.Equal(t, entities.ConfirmationTaken, list[1].Status)

	list, err = repo.ListByReport(ctx, "none")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSubscriptionRegistry(t *testing.T) {
	reg := NewSubscriptionRegistry(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, reg.Subscribe(ctx, "c2", "69y7p"))
	require.NoError(t, reg.Subscribe(ctx, "c1", "69y7p"))
	require.NoError(t, reg.Subscribe(ctx, "c3", "9q8yy"))

	subs, err := reg.ListSubscribers(ctx, "69y7p")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2"}, subs)

	// Re-subscribing moves the connection.
	require.NoError(t, reg.Subscribe(ctx, "c1", "9q8yy"))
	subs, err = reg.ListSubscribers(ctx, "9q8yy")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c3"}, subs)

	require.NoError(t, reg.Unsubscribe(ctx, "c3"))
	require.NoError(t, reg.Unsubscribe(ctx, "unknown"))
	subs, err = reg.ListSubscribers(ctx, "9q8yy")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, subs)

	subs, err = reg.ListSubscribers(ctx, "empty")
	require.NoError(t, err)
	assert.Empty(t, subs)
}
