package notification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shyim/backup-pruner/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockNotifier is a test implementation of Notifier
type mockNotifier struct {
	name      string
	typeName  string
	sendFunc  func(ctx context.Context, event Event) error
	sendCount int32
}

func (m *mockNotifier) Name() string {
	return m.name
}

func (m *mockNotifier) Type() string {
	return m.typeName
}

func (m *mockNotifier) Send(ctx context.Context, event Event) error {
	atomic.AddInt32(&m.sendCount, 1)
	if m.sendFunc != nil {
		return m.sendFunc(ctx, event)
	}
	return nil
}

func (m *mockNotifier) getSendCount() int {
	return int(atomic.LoadInt32(&m.sendCount))
}

type mockNotifierType struct{}

func (t *mockNotifierType) Name() string { return "mock" }

func (t *mockNotifierType) Create(name string, options map[string]string) (Notifier, error) {
	if options["fail"] == "true" {
		return nil, fmt.Errorf("mock notifier %q misconfigured", name)
	}
	return &mockNotifier{name: name, typeName: "mock"}, nil
}

func init() {
	Register(&mockNotifierType{})
}

func completedEvent() Event {
	return Event{
		Type:      EventPruneCompleted,
		Group:     "postgres",
		Total:     10,
		Kept:      7,
		Deleted:   3,
		Size:      1000,
		SizeAfter: 700,
	}
}

func TestNewManager(t *testing.T) {
	mgr := NewManager()
	require.NotNil(t, mgr)
	assert.NotNil(t, mgr.notifiers, "expected notifiers map to be initialized")
	assert.Equal(t, 0, mgr.NotifierCount())
}

func TestNewManagerFromConfig(t *testing.T) {
	mgr, err := NewManagerFromConfig(map[string]*config.NotifyConfig{
		"ops":  {Name: "ops", Type: "mock", Options: map[string]string{}},
		"team": {Name: "team", Type: "mock", Options: map[string]string{}},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"ops", "team"}, mgr.Names())
}

func TestNewManagerFromConfig_Errors(t *testing.T) {
	_, err := NewManagerFromConfig(map[string]*config.NotifyConfig{
		"ops": {Name: "ops", Type: "pager", Options: map[string]string{}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown notifier type: pager")

	_, err = NewManagerFromConfig(map[string]*config.NotifyConfig{
		"ops": {Name: "ops", Type: "mock", Options: map[string]string{"fail": "true"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "misconfigured")
}

func TestManager_AddNotifier_Replace(t *testing.T) {
	mgr := NewManager()

	mgr.AddNotifier("test", &mockNotifier{name: "test", typeName: "mock1"})
	mgr.AddNotifier("test", &mockNotifier{name: "test", typeName: "mock2"})

	assert.Equal(t, 1, mgr.NotifierCount(), "expected 1 notifier after replacement")

	notifiers := mgr.ListNotifiers()
	require.Len(t, notifiers, 1)
	assert.Equal(t, "mock2", notifiers[0].Type, "expected replacement notifier to be used")
}

func TestManager_Notify_MultipleProviders(t *testing.T) {
	mgr := NewManager()
	telegram := &mockNotifier{name: "telegram", typeName: "telegram"}
	discord := &mockNotifier{name: "discord", typeName: "discord"}

	mgr.AddNotifier("telegram", telegram)
	mgr.AddNotifier("discord", discord)

	mgr.Notify(context.Background(), completedEvent(), []string{"telegram", "discord"})

	assert.Equal(t, 1, telegram.getSendCount(), "expected 1 telegram send")
	assert.Equal(t, 1, discord.getSendCount(), "expected 1 discord send")
}

func TestManager_Notify_NoProviders(t *testing.T) {
	mgr := NewManager()
	notifier := &mockNotifier{name: "telegram", typeName: "telegram"}
	mgr.AddNotifier("telegram", notifier)

	mgr.Notify(context.Background(), completedEvent(), nil)
	mgr.Notify(context.Background(), completedEvent(), []string{})

	assert.Equal(t, 0, notifier.getSendCount())
}

func TestManager_Notify_UnknownProvider(t *testing.T) {
	mgr := NewManager()
	telegram := &mockNotifier{name: "telegram", typeName: "telegram"}
	mgr.AddNotifier("telegram", telegram)

	mgr.Notify(context.Background(), completedEvent(), []string{"telegram", "unknown"})

	assert.Equal(t, 1, telegram.getSendCount())
}

func TestManager_Notify_SendError(t *testing.T) {
	mgr := NewManager()
	notifier := &mockNotifier{
		name:     "failing",
		typeName: "mock",
		sendFunc: func(ctx context.Context, event Event) error {
			return errors.New("send failed")
		},
	}
	mgr.AddNotifier("failing", notifier)

	mgr.Notify(context.Background(), completedEvent(), []string{"failing"})

	assert.Equal(t, 1, notifier.getSendCount(), "expected 1 send attempt")
}

func TestManager_NotifyAll(t *testing.T) {
	mgr := NewManager()
	a := &mockNotifier{name: "a", typeName: "mock"}
	b := &mockNotifier{name: "b", typeName: "mock"}
	mgr.AddNotifier("a", a)
	mgr.AddNotifier("b", b)

	mgr.NotifyAll(context.Background(), completedEvent())

	assert.Equal(t, 1, a.getSendCount())
	assert.Equal(t, 1, b.getSendCount())
}

func TestManager_Notify_Concurrent(t *testing.T) {
	mgr := NewManager()

	var sendCount int32
	notifier := &mockNotifier{
		name:     "test",
		typeName: "mock",
		sendFunc: func(ctx context.Context, event Event) error {
			atomic.AddInt32(&sendCount, 1)
			time.Sleep(10 * time.Millisecond)
			return nil
		},
	}
	mgr.AddNotifier("test", notifier)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mgr.NotifyAll(context.Background(), completedEvent())
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(10), atomic.LoadInt32(&sendCount))
}

func TestManager_ListNotifiers(t *testing.T) {
	mgr := NewManager()
	assert.Empty(t, mgr.ListNotifiers())

	mgr.AddNotifier("telegram", &mockNotifier{name: "telegram", typeName: "telegram"})
	mgr.AddNotifier("discord", &mockNotifier{name: "discord", typeName: "discord"})

	assert.Equal(t, []NotifierInfo{
		{Name: "discord", Type: "discord"},
		{Name: "telegram", Type: "telegram"},
	}, mgr.ListNotifiers())
}

func TestEvent_Reclaimed(t *testing.T) {
	assert.Equal(t, int64(300), completedEvent().Reclaimed())
}

func TestRegistry_Types(t *testing.T) {
	assert.Contains(t, Types(), "mock")

	_, ok := Get("mock")
	assert.True(t, ok)
}
