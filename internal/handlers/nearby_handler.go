package handlers

import (
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	nearbymodels "io.realgram.engine/internal/models/nearby"
	realestate "io.realgram.engine/internal/models/realestate"
	"io.realgram.engine/internal/notify"
	"io.realgram.engine/internal/store"
)

const (
	nearbyRadiusKm = 1.0
	earthRadiusKm  = 6371.0
)

// NearbyHandler serves the authenticated proximity lookup: approved
// properties within a fixed radius of the caller's position, with at most
// one push about them.
type NearbyHandler struct {
	store      store.Store
	resolver   *notify.Resolver
	dispatcher *notify.Dispatcher
	logger     *zap.SugaredLogger
}

func NewNearbyHandler(s store.Store, resolver *notify.Resolver, dispatcher *notify.Dispatcher, logger *zap.SugaredLogger) *NearbyHandler {
	return &NearbyHandler{store: s, resolver: resolver, dispatcher: dispatcher, logger: logger}
}

func (h *NearbyHandler) Nearby(c *gin.Context) {
	var req nearbymodels.NearbyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	properties, err := h.store.ApprovedProperties(c.Request.Context())
	if err != nil {
		h.logger.Errorw("approved properties query failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	nearbyIDs := nearbyPropertyIDs(properties, *req.Latitude, *req.Longitude)
	if len(nearbyIDs) > 0 {
		h.notifyNearby(c, req.UserID, nearbyIDs)
	}

	c.JSON(http.StatusOK, nearbymodels.NearbyResponse{Success: true, NearbyCount: len(nearbyIDs)})
}

// notifyNearby sends the single nearby_properties push, best-effort: a
// missing token or failed send never fails the lookup itself.
func (h *NearbyHandler) notifyNearby(c *gin.Context, userID string, propertyIDs []string) {
	ctx := c.Request.Context()
	recipient, err := h.resolver.Resolve(ctx, userID, "Someone")
	if err != nil {
		h.logger.Warnw("nearby recipient resolve failed", "user_id", userID, "error", err)
		return
	}
	if recipient.Token == "" {
		return
	}

	eventID := "nearby:" + uuid.New().String()
	outcome := h.dispatcher.Dispatch(ctx, eventID, userID, recipient.Token, notify.NearbyProperties(propertyIDs))
	if outcome == notify.InvalidToken {
		if err := h.store.ClearDeviceToken(ctx, userID); err != nil {
			h.logger.Warnw("token clear failed", "user_id", userID, "error", err)
		}
	}
}

func nearbyPropertyIDs(properties []realestate.Property, lat, lon float64) []string {
	var ids []string
	for _, property := range properties {
		if haversineKm(lat, lon, property.Latitude, property.Longitude) <= nearbyRadiusKm {
			ids = append(ids, property.ID)
		}
	}
	return ids
}

// haversineKm is the great-circle distance between two coordinates.
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}
