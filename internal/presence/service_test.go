package presence

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/officewatch/officewatch/internal/netscan"
	"github.com/officewatch/officewatch/internal/registry"
)

type fakeAggregator struct {
	mu           sync.Mutex
	observations []netscan.Observation
	err          error
	calls        int
	inFlight     int
	maxInFlight  int
}

func (f *fakeAggregator) Aggregate(context.Context) ([]netscan.Observation, error) {
	f.mu.Lock()
	f.calls++
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()
	return f.observations, f.err
}

type fakeUserLister struct {
	users        []registry.User
	err          error
	workspaceIDs []string
}

func (f *fakeUserLister) ListUsers(_ context.Context, workspaceID string) ([]registry.User, error) {
	f.workspaceIDs = append(f.workspaceIDs, workspaceID)
	return f.users, f.err
}

func TestServiceCheck(t *testing.T) {
	agg := &fakeAggregator{observations: []netscan.Observation{
		{IP: "192.168.1.10", MAC: "aa:bb:cc:dd:ee:ff"},
		{IP: "192.168.1.11", MAC: "11:11:11:11:11:11"},
	}}
	lister := &fakeUserLister{users: []registry.User{
		user("U1", "田中", "AA:BB:CC:DD:EE:FF"),
		user("U2", "鈴木", "ff:ff:ff:ff:ff:ff"),
	}}
	svc := NewService(agg, lister, "W1", nil, nil)

	result, err := svc.Check(context.Background(), "http")
	require.NoError(t, err)
	require.Len(t, result.PresentUsers, 1)
	assert.Equal(t, "U1", result.PresentUsers[0].ID)
	assert.Len(t, result.Observations, 2)
	assert.Equal(t, []string{"W1"}, lister.workspaceIDs)
	assert.Equal(t, "オフィスにいるのは：田中", result.Message())
}

func TestServiceCheckNobodyPresent(t *testing.T) {
	agg := &fakeAggregator{observations: []netscan.Observation{
		{IP: "192.168.1.10", MAC: "ee:ee:ee:ee:ee:ee"},
	}}
	lister := &fakeUserLister{users: []registry.User{user("U1", "田中", "aa:aa:aa:aa:aa:aa")}}
	svc := NewService(agg, lister, "W1", nil, nil)

	result, err := svc.Check(context.Background(), "chat")
	require.NoError(t, err)
	assert.Empty(t, result.PresentUsers)
	assert.Equal(t, "誰もオフィスにいません", result.Message())
}

func TestServiceCheckScanFailure(t *testing.T) {
	agg := &fakeAggregator{err: fmt.Errorf("arp-scan exited 1")}
	lister := &fakeUserLister{}
	svc := NewService(agg, lister, "W1", nil, nil)

	_, err := svc.Check(context.Background(), "http")
	assert.Error(t, err)
}

func TestServiceCheckRegistryFailure(t *testing.T) {
	agg := &fakeAggregator{}
	lister := &fakeUserLister{err: fmt.Errorf("connection refused")}
	svc := NewService(agg, lister, "W1", nil, nil)

	_, err := svc.Check(context.Background(), "http")
	assert.Error(t, err)
	assert.Zero(t, agg.calls, "scan must not run when the registry is unavailable")
}

func TestServiceCheckSerialized(t *testing.T) {
	agg := &fakeAggregator{}
	lister := &fakeUserLister{}
	svc := NewService(agg, lister, "W1", nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Check(context.Background(), "http")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 8, agg.calls)
	assert.Equal(t, 1, agg.maxInFlight, "checks must not overlap")
}

func TestResultMessageJoinsNames(t *testing.T) {
	r := &Result{PresentUsers: []registry.User{
		{ID: "U1", Name: "田中"},
		{ID: "U2", Name: "鈴木"},
	}}
	assert.Equal(t, "オフィスにいるのは：田中、鈴木", r.Message())
}
