package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/kizunalab/machiba/internal/activity"
	"github.com/kizunalab/machiba/internal/api/middleware"
	"github.com/kizunalab/machiba/internal/api/shared/dto"
	apierrors "github.com/kizunalab/machiba/internal/api/shared/errors"
	"github.com/kizunalab/machiba/internal/domain"
	"github.com/kizunalab/machiba/internal/line"
	"github.com/kizunalab/machiba/internal/logger"
	"github.com/kizunalab/machiba/internal/paypay"
	"github.com/kizunalab/machiba/internal/store/schema"
)

func activityLogin(username string) activity.Entry {
	return activity.Entry{
		Actor:      username,
		Action:     domain.ActivityLogin,
		EntityType: "session",
	}
}

// Login authenticates an admin user and issues a session token
func (h *handler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		respondAPIError(c, err)
		return
	}

	user, err := h.store.GetUserByUsername(c.Request.Context(), req.Username)
	if err != nil {
		respondInternalError(c, err, "Failed to look up user")
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		logger.WarnCtx(c.Request.Context(), "Rejected login attempt",
			zap.String("username", req.Username),
			zap.String("client_ip", c.ClientIP()),
		)
		respondUnauthorized(c, "Invalid credentials")
		return
	}

	token, expiresAt, err := h.issuer.Issue(user.UserID, user.Username, user.Role)
	if err != nil {
		respondInternalError(c, err, "Failed to issue session token")
		return
	}

	h.activities.Record(c.Request.Context(), activityLogin(user.Username))

	c.JSON(http.StatusOK, dto.OK(dto.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      dto.NewUserResponse(user),
	}))
}

// ListUsers retrieves all admin users
func (h *handler) ListUsers(c *gin.Context) {
	users, err := h.store.ListUsers(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "Failed to list users")
		return
	}

	responses := make([]dto.UserResponse, 0, len(users))
	for _, u := range users {
		responses = append(responses, dto.NewUserResponse(u))
	}
	c.JSON(http.StatusOK, dto.OK(responses))
}

// CreateUser creates a new admin user
func (h *handler) CreateUser(c *gin.Context) {
	var req dto.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		respondAPIError(c, err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondInternalError(c, err, "Failed to hash password")
		return
	}

	role := domain.UserRole(req.Role)
	if req.Role == "" {
		role = domain.RoleEditor
	}
	displayName := req.DisplayName
	if displayName == "" {
		displayName = req.Username
	}

	user := &schema.AdminUser{
		UserID:       uuid.New().String(),
		Username:     req.Username,
		DisplayName:  displayName,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := h.store.CreateUser(c.Request.Context(), user); err != nil {
		if errors.Is(err, domain.ErrUsernameTaken) {
			respondConflict(c, "Username already taken", req.Username)
			return
		}
		respondInternalError(c, err, "Failed to create user")
		return
	}

	h.recordActivity(c, domain.ActivityCreate, "user", user.UserID, map[string]any{
		"username": user.Username,
	})
	c.JSON(http.StatusCreated, dto.OK(dto.NewUserResponse(user)))
}

// UpdateUser updates an existing admin user
func (h *handler) UpdateUser(c *gin.Context) {
	userID := c.Param("id")

	var req dto.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		respondAPIError(c, err)
		return
	}

	user, err := h.store.GetUserByUserID(c.Request.Context(), userID)
	if err != nil {
		respondInternalError(c, err, "Failed to get user")
		return
	}
	if user == nil {
		respondNotFound(c, "User not found")
		return
	}

	if req.DisplayName != nil {
		user.DisplayName = *req.DisplayName
	}
	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			respondInternalError(c, err, "Failed to hash password")
			return
		}
		user.PasswordHash = string(hash)
	}
	if req.Role != nil {
		user.Role = domain.UserRole(*req.Role)
	}

	if err := h.store.UpdateUser(c.Request.Context(), user); err != nil {
		respondInternalError(c, err, "Failed to update user")
		return
	}

	h.recordActivity(c, domain.ActivityUpdate, "user", user.UserID, map[string]any{
		"username": user.Username,
	})
	c.JSON(http.StatusOK, dto.OK(dto.NewUserResponse(user)))
}

// DeleteUser removes an admin user
func (h *handler) DeleteUser(c *gin.Context) {
	userID := c.Param("id")

	// An admin cannot delete their own account
	if claims := middleware.SessionFromContext(c); claims != nil && claims.Subject == userID {
		respondAPIError(c, apierrors.NewForbiddenError("Cannot delete your own account"))
		return
	}

	if err := h.store.DeleteUser(c.Request.Context(), userID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			respondNotFound(c, "User not found")
			return
		}
		respondInternalError(c, err, "Failed to delete user")
		return
	}

	h.recordActivity(c, domain.ActivityDelete, "user", userID, nil)
	c.JSON(http.StatusOK, dto.OK(nil))
}

// ListActivities retrieves the recent audit log
func (h *handler) ListActivities(c *gin.Context) {
	var params ListQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBadRequest(c, "Invalid query parameters", err.Error())
		return
	}
	params.Normalize()

	entries, err := h.activities.Recent(c.Request.Context(), params.Limit)
	if err != nil {
		respondInternalError(c, err, "Failed to list activities")
		return
	}

	responses := make([]dto.ActivityResponse, 0, len(entries))
	for _, a := range entries {
		responses = append(responses, dto.NewActivityResponse(a))
	}
	c.JSON(http.StatusOK, dto.OK(responses))
}

// SendMessage sends a LINE message to followers or selected users
func (h *handler) SendMessage(c *gin.Context) {
	if h.lineClient == nil {
		c.JSON(http.StatusServiceUnavailable, apierrors.NewServiceError("Messaging is not configured"))
		return
	}

	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		respondAPIError(c, err)
		return
	}

	text, err := h.renderMessage(c, &req)
	if err != nil {
		// renderMessage has already responded
		return
	}

	messages := []line.TextMessage{line.NewTextMessage(text)}
	mode := "multicast"
	if len(req.To) == 0 {
		mode = "broadcast"
		err = h.lineClient.Broadcast(c.Request.Context(), messages)
	} else {
		err = h.lineClient.Multicast(c.Request.Context(), req.To, messages)
	}
	if err != nil {
		respondInternalError(c, err, "Failed to send message")
		return
	}

	h.recordActivity(c, domain.ActivitySend, "message", "", map[string]any{
		"mode":       mode,
		"recipients": len(req.To),
	})
	c.JSON(http.StatusOK, dto.OK(dto.SendMessageResponse{
		Recipients: len(req.To),
		Mode:       mode,
	}))
}

// renderMessage resolves the message text, expanding template variables
// when a template is selected. On failure it responds and returns an error.
func (h *handler) renderMessage(c *gin.Context, req *dto.SendMessageRequest) (string, error) {
	if req.Text != nil {
		return *req.Text, nil
	}

	tmpl, err := h.store.GetTemplateByTemplateID(c.Request.Context(), *req.TemplateID)
	if err != nil {
		respondInternalError(c, err, "Failed to get template")
		return "", err
	}
	if tmpl == nil {
		respondNotFound(c, "Template not found", *req.TemplateID)
		return "", domain.ErrTemplateNotFound
	}

	text := tmpl.Body
	for name, value := range req.Variables {
		text = strings.ReplaceAll(text, "{"+name+"}", value)
	}
	return text, nil
}

// CreatePaymentLink creates a PayPay payment link
func (h *handler) CreatePaymentLink(c *gin.Context) {
	if h.paypayClient == nil {
		c.JSON(http.StatusServiceUnavailable, apierrors.NewServiceError("Payments are not configured"))
		return
	}

	var req dto.PaymentLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		respondAPIError(c, err)
		return
	}

	link, err := h.paypayClient.CreatePaymentLink(c.Request.Context(), paypay.CreatePaymentRequest{
		AmountYen:        req.AmountYen,
		OrderDescription: req.Description,
		RedirectURL:      req.RedirectURL,
	})
	if err != nil {
		respondInternalError(c, err, "Failed to create payment link")
		return
	}

	h.recordActivity(c, domain.ActivityCreate, "payment_link", link.MerchantPaymentID, map[string]any{
		"amount_yen": req.AmountYen,
	})
	c.JSON(http.StatusCreated, dto.OK(link))
}

// UploadImage stores an image and returns its delivery URL
func (h *handler) UploadImage(c *gin.Context) {
	if h.uploader == nil {
		c.JSON(http.StatusServiceUnavailable, apierrors.NewServiceError("Uploads are not configured"))
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		respondBadRequest(c, "Missing file field", err.Error())
		return
	}
	defer file.Close()

	result, err := h.uploader.Upload(c.Request.Context(), header.Filename, file)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnsupportedMediaType):
			respondAPIError(c, apierrors.NewValidationError("unsupported media type"))
		case errors.Is(err, domain.ErrMediaTooLarge):
			respondAPIError(c, apierrors.NewPayloadTooLargeError("Image too large"))
		default:
			respondInternalError(c, err, "Failed to upload image")
		}
		return
	}

	h.recordActivity(c, domain.ActivityUpload, "image", result.ImageID, map[string]any{
		"content_type": result.ContentType,
		"size":         result.Size,
	})
	c.JSON(http.StatusCreated, dto.OK(result))
}

// LineWebhook receives LINE platform webhook deliveries. Events are
// acknowledged and logged; the site sends no automatic replies.
func (h *handler) LineWebhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		respondBadRequest(c, "Failed to read body", err.Error())
		return
	}

	if !line.ValidateSignature(h.lineChannelSecret, body, c.GetHeader("X-Line-Signature")) {
		logger.WarnCtx(c.Request.Context(), "Rejected webhook with invalid signature",
			zap.String("client_ip", c.ClientIP()),
		)
		respondUnauthorized(c, "Invalid signature")
		return
	}

	var req line.WebhookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		respondBadRequest(c, "Invalid webhook body", err.Error())
		return
	}

	for _, event := range req.Events {
		logger.InfoCtx(c.Request.Context(), "LINE webhook event",
			zap.String("type", event.Type),
			zap.String("user_id", event.Source.UserID),
		)
	}

	c.JSON(http.StatusOK, gin.H{})
}
