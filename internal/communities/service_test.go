package communities

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/communityhub/marketplace-backend/internal/policy"
	"github.com/communityhub/marketplace-backend/pkg/db"
	"github.com/communityhub/marketplace-backend/pkg/db/dbtest"
	"github.com/communityhub/marketplace-backend/pkg/enums"
	pkgerrors "github.com/communityhub/marketplace-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var codePattern = regexp.MustCompile(`^COM[0-9A-F]{8}$`)

func newService(t *testing.T, client *db.Client, newCode func() (string, error)) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{Repo: NewRepository(client), NewCode: newCode})
	require.NoError(t, err)
	return svc
}

func masterActor() policy.Actor {
	return policy.Actor{UserID: uuid.New(), Role: enums.UserRoleMaster}
}

func TestCreateGeneratesJoinCode(t *testing.T) {
	client := dbtest.NewClient(t)
	svc := newService(t, client, nil)

	got, err := svc.Create(context.Background(), masterActor(), CreateCommunityInput{Name: "  Lake View  "})
	require.NoError(t, err)
	assert.Equal(t, "Lake View", got.Name)
	assert.Equal(t, defaultCountry, got.Country)
	assert.True(t, got.IsActive)
	assert.Regexp(t, codePattern, got.Code)

	found, err := NewRepository(client).FindByCode(context.Background(), got.Code)
	require.NoError(t, err)
	assert.Equal(t, got.ID, found.ID)
}

func TestCreateRegeneratesCodeOnCollision(t *testing.T) {
	client := dbtest.NewClient(t)
	codes := []string{"COM00000001", "COM00000001", "COM00000002"}
	calls := 0
	svc := newService(t, client, func() (string, error) {
		code := codes[calls]
		calls++
		return code, nil
	})
	ctx := context.Background()

	first, err := svc.Create(ctx, masterActor(), CreateCommunityInput{Name: "First"})
	require.NoError(t, err)
	second, err := svc.Create(ctx, masterActor(), CreateCommunityInput{Name: "Second"})
	require.NoError(t, err)

	assert.Equal(t, "COM00000001", first.Code)
	assert.Equal(t, "COM00000002", second.Code)
	assert.Equal(t, 3, calls)
}

func TestCreateGivesUpAfterRepeatedCollisions(t *testing.T) {
	client := dbtest.NewClient(t)
	svc := newService(t, client, func() (string, error) { return "COM0000000A", nil })
	ctx := context.Background()

	_, err := svc.Create(ctx, masterActor(), CreateCommunityInput{Name: "First"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, masterActor(), CreateCommunityInput{Name: "Second"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)
}

func TestWritesRequireMaster(t *testing.T) {
	client := dbtest.NewClient(t)
	svc := newService(t, client, nil)
	ctx := context.Background()
	vendor := policy.Actor{UserID: uuid.New(), Role: enums.UserRoleVendor}

	_, err := svc.Create(ctx, vendor, CreateCommunityInput{Name: "Nope"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodePermissionDenied), "got %v", err)

	_, err = svc.Create(ctx, masterActor(), CreateCommunityInput{Name: "   "})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

	_, err = svc.SetActive(ctx, vendor, uuid.New(), false)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodePermissionDenied), "got %v", err)

	_, err = svc.Stats(ctx, vendor)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodePermissionDenied), "got %v", err)
}

func TestUpdateAndSetActive(t *testing.T) {
	client := dbtest.NewClient(t)
	svc := newService(t, client, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, masterActor(), CreateCommunityInput{Name: "Old"})
	require.NoError(t, err)

	name, city := "New", "Pune"
	updated, err := svc.Update(ctx, masterActor(), created.ID, UpdateCommunityInput{Name: &name, City: &city})
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Name)
	require.NotNil(t, updated.City)
	assert.Equal(t, "Pune", *updated.City)
	assert.Equal(t, created.Code, updated.Code)

	off, err := svc.SetActive(ctx, masterActor(), created.ID, false)
	require.NoError(t, err)
	assert.False(t, off.IsActive)

	_, err = svc.Update(ctx, masterActor(), uuid.New(), UpdateCommunityInput{Name: &name})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
}

func TestListNewestFirst(t *testing.T) {
	client := dbtest.NewClient(t)
	svc := newService(t, client, nil)
	ctx := context.Background()

	older, err := svc.Create(ctx, masterActor(), CreateCommunityInput{Name: "Older"})
	require.NoError(t, err)
	require.NoError(t, client.DB().Table("communities").Where("id = ?", older.ID).
		Update("created_at", time.Now().UTC().Add(-time.Hour)).Error)
	newer, err := svc.Create(ctx, masterActor(), CreateCommunityInput{Name: "Newer"})
	require.NoError(t, err)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, older.ID, list[1].ID)
}

func TestStatsSortedByRevenue(t *testing.T) {
	client := dbtest.NewClient(t)
	conn := client.DB()
	svc := newService(t, client, nil)
	ctx := context.Background()

	quiet := dbtest.SeedLaundry(t, conn)
	busy := dbtest.SeedLaundry(t, conn)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	dbtest.SeedOrder(t, conn, quiet, now, enums.LaundryOrderStatusDelivered, "40.00")
	dbtest.SeedOrder(t, conn, busy, now, enums.LaundryOrderStatusDelivered, "212.40")
	dbtest.SeedOrder(t, conn, busy, now, enums.LaundryOrderStatusDelivered, "100.00")
	dbtest.SeedOrder(t, conn, busy, now, enums.LaundryOrderStatusPending, "500.00")

	stats, err := svc.Stats(ctx, masterActor())
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, busy.Community.ID, stats[0].CommunityID)
	assert.EqualValues(t, 3, stats[0].OrderCount)
	assert.EqualValues(t, 1, stats[0].VendorCount)
	assert.EqualValues(t, 2, stats[0].UserCount)
	assert.True(t, stats[0].Revenue.Equal(decimal.RequireFromString("312.40")), stats[0].Revenue.String())
	assert.Equal(t, quiet.Community.ID, stats[1].CommunityID)
	assert.True(t, stats[1].Revenue.Equal(decimal.RequireFromString("40")), stats[1].Revenue.String())
}

func TestSearchMatchesNameCodeAddressAndCity(t *testing.T) {
	client := dbtest.NewClient(t)
	codes := []string{"COM0000AAAA", "COM0000BBBB", "COM0000CCCC"}
	calls := 0
	svc := newService(t, client, func() (string, error) {
		code := codes[calls]
		calls++
		return code, nil
	})
	ctx := context.Background()

	address, city := "12 Harbour Road", "Pune"
	lake, err := svc.Create(ctx, masterActor(), CreateCommunityInput{Name: "Lake View"})
	require.NoError(t, err)
	harbour, err := svc.Create(ctx, masterActor(), CreateCommunityInput{Name: "Sea Breeze", Address: &address})
	require.NoError(t, err)
	pune, err := svc.Create(ctx, masterActor(), CreateCommunityInput{Name: "Green Acres", City: &city})
	require.NoError(t, err)

	cases := []struct {
		query string
		want  []uuid.UUID
	}{
		{query: "lake", want: []uuid.UUID{lake.ID}},
		{query: "com0000bb", want: []uuid.UUID{harbour.ID}},
		{query: "HARBOUR", want: []uuid.UUID{harbour.ID}},
		{query: " pune ", want: []uuid.UUID{pune.ID}},
		{query: "e", want: []uuid.UUID{pune.ID, lake.ID, harbour.ID}},
		{query: "%", want: nil},
	}
	for _, tc := range cases {
		got, err := svc.Search(ctx, tc.query)
		require.NoError(t, err, tc.query)
		ids := make([]uuid.UUID, 0, len(got))
		for _, c := range got {
			ids = append(ids, c.ID)
		}
		if tc.want == nil {
			assert.Empty(t, ids, tc.query)
			continue
		}
		assert.Equal(t, tc.want, ids, tc.query)
	}

	_, err = svc.Search(ctx, "   ")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
}

func TestDeleteRemovesEmptyCommunityOnly(t *testing.T) {
	client := dbtest.NewClient(t)
	svc := newService(t, client, nil)
	ctx := context.Background()

	empty, err := svc.Create(ctx, masterActor(), CreateCommunityInput{Name: "Empty"})
	require.NoError(t, err)
	populated := dbtest.SeedLaundry(t, client.DB())

	vendor := policy.Actor{UserID: uuid.New(), Role: enums.UserRoleVendor}
	err = svc.Delete(ctx, vendor, empty.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodePermissionDenied), "got %v", err)

	err = svc.Delete(ctx, masterActor(), populated.Community.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)
	_, err = svc.Get(ctx, populated.Community.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, masterActor(), empty.ID))
	_, err = svc.Get(ctx, empty.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)

	err = svc.Delete(ctx, masterActor(), empty.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
}
