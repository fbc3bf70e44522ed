// Package interactions receives Discord interaction webhooks, verifies
// their signatures, and routes component presses to the registration
// controller.
package interactions

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/heraldbot/backend/internal/models"
	"github.com/heraldbot/backend/internal/registration"
)

// Interaction wire types and response types, per the Discord API.
const (
	typePing      = 1
	typeComponent = 3

	responsePong         = 1
	responseMessage      = 4
	responseDeferredEdit = 6
	flagEphemeral        = 64
)

// Controller is the registration surface the webhook drives.
type Controller interface {
	ChooseStatus(userID, channelID int64, status models.Status) error
	ChooseJob(userID, channelID int64, job models.Job) error
	Join(ctx context.Context, userID, channelID int64) error
	Leave(ctx context.Context, userID, channelID int64) error
}

// Handler handles POST /interactions.
type Handler struct {
	controller Controller
	publicKey  ed25519.PublicKey
	logger     *zap.Logger
}

// NewHandler creates an interactions handler. The public key is the
// hex-encoded ed25519 key from the Discord application settings.
func NewHandler(controller Controller, publicKeyHex string, logger *zap.Logger) (*Handler, error) {
	key, err := hex.DecodeString(publicKeyHex)
	if err != nil {
		return nil, fmt.Errorf("decode public key: %w", err)
	}
	if len(key) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("public key must be %d bytes, got %d", ed25519.PublicKeySize, len(key))
	}
	return &Handler{controller: controller, publicKey: key, logger: logger}, nil
}

type interactionRequest struct {
	Type      int             `json:"type"`
	ChannelID string          `json:"channel_id"`
	Data      interactionData `json:"data"`
	Member    *memberPayload  `json:"member"`
	User      *userPayload    `json:"user"`
}

type interactionData struct {
	CustomID string   `json:"custom_id"`
	Values   []string `json:"values"`
}

type memberPayload struct {
	User userPayload `json:"user"`
}

type userPayload struct {
	ID string `json:"id"`
}

// Handle handles POST /interactions.
func (h *Handler) Handle(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	if !h.verify(c, body) {
		c.String(http.StatusUnauthorized, "invalid request signature")
		return
	}

	var req interactionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	switch req.Type {
	case typePing:
		c.JSON(http.StatusOK, gin.H{"type": responsePong})
	case typeComponent:
		h.component(c, &req)
	default:
		c.Status(http.StatusBadRequest)
	}
}

func (h *Handler) component(c *gin.Context, req *interactionRequest) {
	channelID, err := strconv.ParseInt(req.ChannelID, 10, 64)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	userID, err := req.userID()
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	ctx := c.Request.Context()
	switch {
	case strings.HasSuffix(req.Data.CustomID, "Join"):
		err = h.controller.Join(ctx, userID, channelID)
	case strings.HasSuffix(req.Data.CustomID, "Leave"):
		err = h.controller.Leave(ctx, userID, channelID)
	case strings.HasSuffix(req.Data.CustomID, "Status"):
		if len(req.Data.Values) != 1 {
			c.Status(http.StatusBadRequest)
			return
		}
		err = h.controller.ChooseStatus(userID, channelID, models.Status(req.Data.Values[0]))
	case strings.HasSuffix(req.Data.CustomID, "Job"):
		if len(req.Data.Values) != 1 {
			c.Status(http.StatusBadRequest)
			return
		}
		err = h.controller.ChooseJob(userID, channelID, models.Job(req.Data.Values[0]))
	default:
		c.Status(http.StatusBadRequest)
		return
	}

	var verr *registration.ValidationError
	if errors.As(err, &verr) {
		ephemeral(c, verr.Message)
		return
	}
	if err != nil {
		h.logger.Error("interaction failed",
			zap.String("custom_id", req.Data.CustomID),
			zap.Int64("channel_id", channelID), zap.Error(err))
		ephemeral(c, "Something went wrong, please try again")
		return
	}
	c.JSON(http.StatusOK, gin.H{"type": responseDeferredEdit})
}

// verify checks the ed25519 signature over timestamp+body.
func (h *Handler) verify(c *gin.Context, body []byte) bool {
	sig, err := hex.DecodeString(c.GetHeader("X-Signature-Ed25519"))
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}
	timestamp := c.GetHeader("X-Signature-Timestamp")
	if timestamp == "" {
		return false
	}
	return ed25519.Verify(h.publicKey, append([]byte(timestamp), body...), sig)
}

func (req *interactionRequest) userID() (int64, error) {
	raw := ""
	if req.Member != nil {
		raw = req.Member.User.ID
	} else if req.User != nil {
		raw = req.User.ID
	}
	return strconv.ParseInt(raw, 10, 64)
}

func ephemeral(c *gin.Context, content string) {
	c.JSON(http.StatusOK, gin.H{
		"type": responseMessage,
		"data": gin.H{"content": content, "flags": flagEphemeral},
	})
}
