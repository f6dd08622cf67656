package merge

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/tripburn/internal/model"
)

func exp(id int64, amount float64, desc, date string, cat model.Category, rid string) model.Expense {
	return model.Expense{ID: id, Amount: amount, Description: desc, Date: date, Category: cat, RemoteID: rid}
}

func TestKey(t *testing.T) {
	e := exp(1, 12.5, "Taxi", "2024-01-01", model.CategoryTransport, "")
	assert.Equal(t, "thailand|2024-01-01|transport|12.50|Taxi", Key("thailand", e))

	e.RemoteID = "r1"
	assert.Equal(t, "id:r1", Key("thailand", e))
}

func TestMergeRemoteClaimsLocalCopy(t *testing.T) {
	local := []model.Expense{exp(7, 12, "Taxi", "2024-01-01", model.CategoryTransport, "")}
	remote := []model.Expense{exp(0, 12, "Taxi", "2024-01-01", model.CategoryTransport, "r1")}

	got := Merge("thailand", local, remote)
	require.Len(t, got, 1)
	assert.Equal(t, "r1", got[0].RemoteID)
	assert.Equal(t, int64(7), got[0].ID)
}

func TestMergeDistinctRemoteIDsStayDistinct(t *testing.T) {
	a := []model.Expense{exp(1, 10, "Lunch", "2024-01-02", model.CategoryFood, "r1")}
	b := []model.Expense{exp(2, 10, "Lunch", "2024-01-02", model.CategoryFood, "r2")}

	got := Merge("laos", a, b)
	require.Len(t, got, 2)
	assert.Equal(t, "r1", got[0].RemoteID)
	assert.Equal(t, "r2", got[1].RemoteID)
}

func TestMergeLastSeenContentFirstSeenOrder(t *testing.T) {
	a := []model.Expense{
		exp(1, 10, "Hostel", "2024-01-01", model.CategoryAccommodation, "r1"),
		exp(2, 5, "Bus", "2024-01-01", model.CategoryTransport, "r2"),
	}
	b := []model.Expense{
		exp(0, 5, "Night bus", "2024-01-01", model.CategoryTransport, "r2"),
		exp(0, 15, "Hostel upgrade", "2024-01-01", model.CategoryAccommodation, "r1"),
	}

	got := Merge("vietnam", a, b)
	require.Len(t, got, 2)
	assert.Equal(t, "r1", got[0].RemoteID)
	assert.Equal(t, "Hostel upgrade", got[0].Description)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, "Night bus", got[1].Description)
}

func TestMergeCollapsesIdenticalLocalExpenses(t *testing.T) {
	a := []model.Expense{
		exp(1, 3, "Coffee", "2024-01-01", model.CategoryFood, ""),
		exp(2, 3, "Coffee", "2024-01-01", model.CategoryFood, ""),
	}
	got := Merge("vietnam", a, nil)
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].ID)
}

func TestMergeLocalEditKeepsRemoteID(t *testing.T) {
	a := []model.Expense{exp(1, 3, "Coffee", "2024-01-01", model.CategoryFood, "r9")}
	b := []model.Expense{exp(0, 3, "Coffee", "2024-01-01", model.CategoryFood, "")}

	got := Merge("vietnam", a, b)
	require.Len(t, got, 1)
	assert.Equal(t, "r9", got[0].RemoteID)
	assert.Equal(t, int64(1), got[0].ID)
}

func TestMergeIdempotent(t *testing.T) {
	a := []model.Expense{
		exp(1, 12, "Taxi", "2024-01-01", model.CategoryTransport, ""),
		exp(2, 40, "Hotel", "2024-01-01", model.CategoryAccommodation, "r2"),
		exp(3, 8, "Dinner", "2024-01-02", model.CategoryFood, ""),
	}
	b := []model.Expense{
		exp(0, 12, "Taxi", "2024-01-01", model.CategoryTransport, "r1"),
		exp(0, 45, "Hotel", "2024-01-01", model.CategoryAccommodation, "r2"),
		exp(0, 20, "Temple", "2024-01-03", model.CategoryActivities, "r3"),
	}

	once := Merge("cambodia", a, b)
	twice := Merge("cambodia", once, b)
	assert.Equal(t, once, twice)
	assert.Len(t, once, 4)
}

func TestMergeIdempotentAfterRemoteEdit(t *testing.T) {
	a := []model.Expense{
		exp(1, 1, "b", "2024-01-01", model.CategoryFood, "r2"),
		exp(0, 2, "a", "2024-01-01", model.CategoryFood, ""),
	}
	b := []model.Expense{
		exp(0, 1, "b", "2024-01-01", model.CategoryFood, ""),
		exp(0, 2, "b", "2024-01-01", model.CategoryFood, ""),
		exp(0, 2, "b", "2024-01-01", model.CategoryFood, "r2"),
	}

	once := Merge("peru", a, b)
	require.Equal(t, Merge("peru", once, b), once)
	require.Len(t, once, 3)
	assert.Equal(t, "r2", once[0].RemoteID)
	assert.Equal(t, 2.0, once[0].Amount)
	assert.Equal(t, 1.0, once[2].Amount)
}

func randomExpenses(r *rand.Rand) []model.Expense {
	descs := []string{"a", "b", " b"}
	remotes := []string{"", "", "r1", "r2", "r3"}
	out := make([]model.Expense, r.IntN(5))
	for i := range out {
		out[i] = exp(
			int64(r.IntN(3)),
			float64(1+r.IntN(2)),
			descs[r.IntN(len(descs))],
			"2024-01-01",
			model.CategoryFood,
			remotes[r.IntN(len(remotes))],
		)
	}
	return out
}

func TestMergeIdempotentRandomized(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	for i := range 20000 {
		a, b := randomExpenses(r), randomExpenses(r)
		once := Merge("x", a, b)
		twice := Merge("x", once, b)
		require.Equal(t, once, twice, fmt.Sprintf("case %d: a=%v b=%v", i, a, b))

		seen := make(map[string]bool)
		for _, e := range once {
			if e.RemoteID == "" {
				continue
			}
			require.False(t, seen[e.RemoteID], "remote id %s duplicated", e.RemoteID)
			seen[e.RemoteID] = true
		}
	}
}

func TestMergeDoesNotModifyInputs(t *testing.T) {
	a := []model.Expense{exp(1, 12, "Taxi", "2024-01-01", model.CategoryTransport, "")}
	b := []model.Expense{exp(0, 12, "Taxi", "2024-01-01", model.CategoryTransport, "r1")}
	Merge("x", a, b)
	assert.Empty(t, a[0].RemoteID)
	assert.Equal(t, int64(0), b[0].ID)
}

func TestMergeEmpty(t *testing.T) {
	got := Merge("x", nil, nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
