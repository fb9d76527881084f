package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/sachero10/backend-tienda-ropa/internal/config"
	"github.com/sachero10/backend-tienda-ropa/internal/infra"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth_WithoutRedis(t *testing.T) {
	db, err := infra.NewDatabase(infra.DatabaseOptions{
		Driver: infra.DriverSQLite,
		DSN:    "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)

	r := gin.New()
	r.GET("/health", Health(db, nil, infra.NewMailer(&config.Config{})))

	w := get(r, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "connected", body["db"])
	assert.Equal(t, "disabled", body["redis"])
	assert.Equal(t, "disabled", body["mailer"])
	assert.Equal(t, true, body["ok"])

	require.NoError(t, sqlDB.Close())
	w = get(r, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
