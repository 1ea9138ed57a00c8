package activitymap_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	auth "github.com/goliatone/go-auth-service"
	"github.com/goliatone/go-auth-service/activitymap"
)

func TestNormalizeDefaults(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 1, 10, 9, 30, 0, 0, time.UTC)
	event := auth.ActivityEvent{
		EventType:  auth.ActivityEventUserStatusChanged,
		Actor:      auth.Actor{ID: 42, Role: auth.RoleAdmin},
		UserID:     100,
		FromStatus: auth.UserStatusInactive,
		ToStatus:   auth.UserStatusActive,
		Metadata: map[string]any{
			"ticket": "SEC-204",
		},
		OccurredAt: ts,
	}

	out := activitymap.Normalize(event)

	assert.Equal(t, "42", out.ActorID)
	assert.Equal(t, string(auth.ActivityEventUserStatusChanged), out.Verb)
	assert.Equal(t, "user", out.ObjectType)
	assert.Equal(t, "100", out.ObjectID)
	assert.Equal(t, "auth", out.Channel)
	assert.True(t, out.OccurredAt.Equal(ts))

	assert.Equal(t, "SEC-204", out.Metadata["ticket"])
	assert.Equal(t, auth.RoleAdmin.String(), out.Metadata[activitymap.MetadataKeyActorRole])
	assert.Equal(t, string(auth.UserStatusInactive), out.Metadata[activitymap.MetadataKeyFromStatus])
	assert.Equal(t, string(auth.UserStatusActive), out.Metadata[activitymap.MetadataKeyToStatus])

	assert.Len(t, event.Metadata, 1, "source metadata must not change")
}

func TestNormalizeOptionOverrides(t *testing.T) {
	t.Parallel()

	event := auth.ActivityEvent{
		EventType: auth.ActivityEventPasswordResetSuccess,
		Actor:     auth.Actor{ID: 7, Role: auth.RoleDriver},
		UserID:    7,
		Metadata: map[string]any{
			"reset_id":                       "reset-1",
			activitymap.MetadataKeyActorRole: "existing",
		},
	}

	out := activitymap.Normalize(
		event,
		activitymap.WithDefaultChannel("security"),
		activitymap.WithDefaultObjectType("account"),
		activitymap.WithObjectIDResolver(func(e auth.ActivityEvent) string {
			if v, ok := e.Metadata["reset_id"].(string); ok {
				return v
			}
			return ""
		}),
	)

	assert.Equal(t, "security", out.Channel)
	assert.Equal(t, "account", out.ObjectType)
	assert.Equal(t, "reset-1", out.ObjectID)
	assert.Equal(t, "existing", out.Metadata[activitymap.MetadataKeyActorRole])
	assert.False(t, out.OccurredAt.IsZero())
}

func TestNormalizeActorFallbackChain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		event  auth.ActivityEvent
		opts   []activitymap.Option
		expect string
	}{
		{
			name:   "uses actor id when present",
			event:  auth.ActivityEvent{Actor: auth.Actor{ID: 1}, UserID: 2},
			expect: "1",
		},
		{
			name:   "uses user id when actor missing",
			event:  auth.ActivityEvent{UserID: 2},
			expect: "2",
		},
		{
			name:   "uses default fallback when actor and user missing",
			event:  auth.ActivityEvent{},
			expect: "system",
		},
		{
			name:   "uses configured fallback when actor and user missing",
			event:  auth.ActivityEvent{},
			opts:   []activitymap.Option{activitymap.WithActorFallback("job")},
			expect: "job",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			out := activitymap.Normalize(tc.event, tc.opts...)
			assert.Equal(t, tc.expect, out.ActorID)
		})
	}
}

func TestNormalizeWithoutMetadata(t *testing.T) {
	t.Parallel()

	out := activitymap.Normalize(auth.ActivityEvent{EventType: auth.ActivityEventLogout, UserID: 3})
	assert.Nil(t, out.Metadata)
	assert.Equal(t, "3", out.ObjectID)
}
