package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjoart/go-topup-wallet/internal/outbox"
	"github.com/zjoart/go-topup-wallet/pkg/database/dbtest"
	"github.com/zjoart/go-topup-wallet/pkg/utils"
)

func TestNotifyWritesOutboxEvent(t *testing.T) {
	db := dbtest.Open(t, &Notification{}, &outbox.Event{})
	svc := NewService(NewRepository(db))
	userID := uuid.New()

	svc.Notify(context.Background(), userID, "deposit", "Wallet credited", "Your wallet was credited with 4975.00")

	list, count, err := svc.Repo.List(context.Background(), userID, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
	assert.Equal(t, "Wallet credited", list[0].Title)
	assert.False(t, list[0].Read)

	evts, err := outbox.NewRepository(db).Poll(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, evts, 1)
	assert.Equal(t, EventCreated, evts[0].EventType)
	assert.Equal(t, userID.String(), evts[0].AggregateID)

	var payload CreatedEvent
	require.NoError(t, json.Unmarshal(evts[0].Payload, &payload))
	assert.Equal(t, list[0].ID, payload.NotificationID)
}

func TestMarkRead(t *testing.T) {
	db := dbtest.Open(t, &Notification{}, &outbox.Event{})
	repo := NewRepository(db)
	owner := uuid.New()

	n := &Notification{UserID: owner, Category: "airtime", Title: "Purchase successful", Body: "ok"}
	require.NoError(t, repo.Create(context.Background(), n))

	h := NewHandler(repo)
	router := mux.NewRouter()
	router.HandleFunc("/api/notifications/{id}/read", h.MarkRead).Methods(http.MethodPost)

	send := func(caller uuid.UUID, id string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/notifications/"+id+"/read", nil)
		req = req.WithContext(context.WithValue(req.Context(), utils.UserIDCtxKey, caller))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr
	}

	assert.Equal(t, http.StatusBadRequest, send(owner, "nope").Code)
	assert.Equal(t, http.StatusNotFound, send(uuid.New(), n.ID.String()).Code)
	assert.Equal(t, http.StatusOK, send(owner, n.ID.String()).Code)

	list, _, err := repo.List(context.Background(), owner, 10, 0)
	require.NoError(t, err)
	assert.True(t, list[0].Read)
}
