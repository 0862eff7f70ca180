package registrations

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stranger-beers/ingestion/internal/models"
	"github.com/stranger-beers/ingestion/internal/store"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func strp(s string) *string { return &s }

func setup(t *testing.T) (*gin.Engine, *store.Memory) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	mem := store.NewMemory()
	now := time.Now().UTC()
	require.NoError(t, mem.RunInTx(ctx, func(st store.Store) error {
		regs := []*models.Registration{
			{RegistrationID: "REG-1", EventID: "EVT-1", PhoneE164: strp("+31612345678"), Paid: true, PaymentLinkStatus: models.LinkStatusMatchedByPhone, CreatedAt: now},
			{RegistrationID: "REG-2", EventID: "EVT-1", PaymentLinkStatus: models.LinkStatusUnpaid, CreatedAt: now.Add(time.Minute)},
			{RegistrationID: "REG-3", EventID: "EVT-2", PaymentLinkStatus: models.LinkStatusUnpaid, CreatedAt: now},
		}
		for _, reg := range regs {
			if err := st.CreateRegistration(ctx, reg); err != nil {
				return err
			}
		}
		for _, recognized := range []bool{true, false, false} {
			if err := st.InsertPaymentAudit(ctx, &models.PaymentAudit{BodyHash: "h", Recognized: recognized, ArrivedAt: now}); err != nil {
				return err
			}
		}
		return nil
	}))
	r := gin.New()
	NewHandler(mem, nil).RegisterRoutes(r.Group("/admin"))
	return r, mem
}

func do(t *testing.T, r *gin.Engine, path string) (int, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w.Code, env
}

func TestListByEvent(t *testing.T) {
	r, _ := setup(t)
	code, env := do(t, r, "/admin/events/EVT-1/registrations")
	require.Equal(t, http.StatusOK, code)

	var out EventRegistrations
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, 2, out.Total)
	assert.Equal(t, 1, out.Paid)
	assert.Equal(t, "REG-2", out.Registrations[0].RegistrationID)

	code, env = do(t, r, "/admin/events/EVT-404/registrations")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, 0, out.Total)
	assert.NotNil(t, out.Registrations)
}

func TestGetRegistration(t *testing.T) {
	r, _ := setup(t)
	code, env := do(t, r, "/admin/registrations/REG-1")
	require.Equal(t, http.StatusOK, code)
	var reg models.Registration
	require.NoError(t, json.Unmarshal(env.Data, &reg))
	assert.Equal(t, models.LinkStatusMatchedByPhone, reg.PaymentLinkStatus)

	code, env = do(t, r, "/admin/registrations/REG-404")
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, env.Success)
}

func TestListPayments(t *testing.T) {
	r, _ := setup(t)

	code, env := do(t, r, "/admin/payments")
	require.Equal(t, http.StatusOK, code)
	var list []models.PaymentAudit
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list, 3)

	code, env = do(t, r, "/admin/payments?recognized=false&limit=1")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)
	assert.False(t, list[0].Recognized)
	assert.Equal(t, int64(3), list[0].ID)

	code, _ = do(t, r, "/admin/payments?limit=0")
	assert.Equal(t, http.StatusOK, code)

	code, _ = do(t, r, "/admin/payments?limit=5000")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, r, "/admin/payments?recognized=maybe")
	assert.Equal(t, http.StatusBadRequest, code)
}
