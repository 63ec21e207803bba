package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"conference-booking-server/middleware"
	"conference-booking-server/services"
)

// AdminHandler serves the approval workflow, batch jobs and the resource
// account registry.
type AdminHandler struct {
	bookings       *services.BookingService
	reconciliation *services.ReconciliationService
	importer       *services.ImportService
	accounts       *services.AccountService
}

func NewAdminHandler(bookings *services.BookingService, reconciliation *services.ReconciliationService, importer *services.ImportService, accounts *services.AccountService) *AdminHandler {
	return &AdminHandler{
		bookings:       bookings,
		reconciliation: reconciliation,
		importer:       importer,
		accounts:       accounts,
	}
}

// RegisterAdminRoutes registers all admin routes
func RegisterAdminRoutes(router *gin.RouterGroup, h *AdminHandler) {
	router.POST("/bookings/:id/approve", h.approveBooking)
	router.POST("/bookings/:id/reject", h.rejectBooking)
	router.POST("/bookings/:id/cancel", h.cancelBooking)
	router.POST("/bookings/bulk-approve", h.bulkApprove)

	router.POST("/reconciliation/start-links", h.runStartLinkRefresh)
	router.POST("/reconciliation/missing-meetings", h.runMissingMeetingRepair)
	router.POST("/imports/recurring", h.importRecurring)

	router.GET("/accounts", h.listAccounts)
	router.POST("/accounts/:id/test", h.testAccount)
}

type approveRequest struct {
	ResourceAccountID uint                    `json:"resource_account_id"`
	Options           services.MeetingOptions `json:"options"`
}

func (h *AdminHandler) approveBooking(c *gin.Context) {
	actor, _ := middleware.CurrentUser(c)

	var req approveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request body"})
		return
	}

	booking, err := h.bookings.Approve(uintParam(c, "id"), req.ResourceAccountID, req.Options, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	message := "booking approved"
	if booking.ZoomMeetingID == nil {
		message = "booking approved with a placeholder link; the meeting will be created by the repair job"
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": message,
		"booking": booking,
	})
}

type reasonRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (h *AdminHandler) rejectBooking(c *gin.Context) {
	actor, _ := middleware.CurrentUser(c)

	var req reasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "a reason is required"})
		return
	}

	booking, err := h.bookings.Reject(uintParam(c, "id"), req.Reason, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "booking rejected",
		"booking": booking,
	})
}

func (h *AdminHandler) cancelBooking(c *gin.Context) {
	actor, _ := middleware.CurrentUser(c)

	var req reasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "a reason is required"})
		return
	}

	booking, err := h.bookings.Cancel(uintParam(c, "id"), req.Reason, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "booking cancelled",
		"booking": booking,
	})
}

type bulkApproveRequest struct {
	BookingIDs        []uint                  `json:"booking_ids" binding:"required"`
	ResourceAccountID uint                    `json:"resource_account_id"`
	Options           services.MeetingOptions `json:"options"`
}

func (h *AdminHandler) bulkApprove(c *gin.Context) {
	actor, _ := middleware.CurrentUser(c)

	var req bulkApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "booking_ids is required"})
		return
	}

	result, err := h.bookings.BulkApprove(req.BookingIDs, req.ResourceAccountID, req.Options, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       result.Overall != "failure",
		"message":       "bulk approve finished: " + result.Overall,
		"overall":       result.Overall,
		"success_count": result.SuccessCount,
		"failure_count": result.FailureCount,
		"results":       result.Results,
	})
}

func (h *AdminHandler) runStartLinkRefresh(c *gin.Context) {
	summary, err := h.reconciliation.RefreshStartLinks()
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *AdminHandler) runMissingMeetingRepair(c *gin.Context) {
	summary, err := h.reconciliation.RepairMissingMeetings()
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

type importRecurringRequest struct {
	ExternalMeetingID string `json:"external_meeting_id" binding:"required"`
	UserID            uint   `json:"user_id" binding:"required"`
	DepartmentID      uint   `json:"department_id" binding:"required"`
	ResourceAccountID uint   `json:"resource_account_id" binding:"required"`
}

func (h *AdminHandler) importRecurring(c *gin.Context) {
	actor, _ := middleware.CurrentUser(c)

	var req importRecurringRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "external_meeting_id, user_id, department_id and resource_account_id are required",
		})
		return
	}

	result, err := h.importer.ImportRecurring(req.ExternalMeetingID, req.UserID, req.DepartmentID, req.ResourceAccountID, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"imported_count":    result.ImportedCount,
		"total_occurrences": result.TotalOccurrences,
		"errors":            result.Errors,
	})
}

func (h *AdminHandler) listAccounts(c *gin.Context) {
	accounts, err := h.accounts.ListActiveAccounts()
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": accounts})
}

func (h *AdminHandler) testAccount(c *gin.Context) {
	account, err := h.accounts.GetActiveAccount(uintParam(c, "id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if err := h.accounts.TestConnectivity(account); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"message":          "connectivity verified",
		"last_verified_at": account.LastVerifiedAt,
	})
}
