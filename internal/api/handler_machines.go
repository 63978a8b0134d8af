package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pmtrack-backend/internal/lifecycle"
	"pmtrack-backend/internal/metrics"
	"pmtrack-backend/internal/model"
	"pmtrack-backend/internal/store"
)

// ListMachines returns every machine ordered by display number.
func (h *Handler) ListMachines(c *gin.Context) {
	records, err := h.store.ListAll(c.Request.Context())
	if err != nil {
		h.writeError(c, "list", err)
		return
	}
	c.JSON(http.StatusOK, model.Views(records))
}

// GetMachine returns a single machine by its machine id.
func (h *Handler) GetMachine(c *gin.Context) {
	rec, err := h.store.FindByMachineID(c.Request.Context(), c.Param("machineId"))
	if err != nil {
		h.writeError(c, "find", err)
		return
	}
	c.JSON(http.StatusOK, rec.View())
}

// SearchMachines filters on manager, PM period and status.
func (h *Handler) SearchMachines(c *gin.Context) {
	records, err := h.store.Search(c.Request.Context(), c.Query("query"))
	if err != nil {
		h.writeError(c, "search", err)
		return
	}
	c.JSON(http.StatusOK, model.Views(records))
}

type machineDetailsRequest struct {
	MachineID  string `json:"machineId" binding:"required"`
	Address    string `json:"address" binding:"required"`
	Manager    string `json:"manager" binding:"required"`
	Technician string `json:"technician" binding:"required"`
}

// CreateMachine registers a new machine with status Outstanding.
func (h *Handler) CreateMachine(c *gin.Context) {
	var req machineDetailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.store.Create(c.Request.Context(), model.NewRecord{
		MachineID:  req.MachineID,
		Address:    req.Address,
		Manager:    req.Manager,
		Technician: req.Technician,
	})
	metrics.IncMutation("create", err)
	if err != nil {
		h.writeError(c, "create", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "machine": rec.View()})
}

// EditMachine replaces the descriptive fields of a machine.
func (h *Handler) EditMachine(c *gin.Context) {
	var req machineDetailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	details := lifecycle.Details{Address: req.Address, Manager: req.Manager, Technician: req.Technician}
	h.mutate(c, "edit", req.MachineID, func(rec *model.MachineRecord) error {
		return lifecycle.EditDetails(rec, details)
	})
}

type updatePMRequest struct {
	MachineID string `json:"machineId" binding:"required"`
	PMPeriod  string `json:"pmPeriod" binding:"required"`
}

// UpdatePM schedules a new PM period, resetting the status to Outstanding.
func (h *Handler) UpdatePM(c *gin.Context) {
	var req updatePMRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	h.mutate(c, "update-pm", req.MachineID, func(rec *model.MachineRecord) error {
		return lifecycle.SchedulePM(rec, req.PMPeriod)
	})
}

type completePMRequest struct {
	MachineID        string `json:"machineId" binding:"required"`
	PMCompletionDate string `json:"pmCompletionDate" binding:"required"`
}

// CompletePM records the completion date and marks the machine Done.
func (h *Handler) CompletePM(c *gin.Context) {
	var req completePMRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	h.mutate(c, "complete-pm", req.MachineID, func(rec *model.MachineRecord) error {
		return lifecycle.CompletePM(rec, req.PMCompletionDate)
	})
}

type machineIDRequest struct {
	MachineID string `json:"machineId" binding:"required"`
}

// ClearPM drops the PM period and completion date.
func (h *Handler) ClearPM(c *gin.Context) {
	var req machineIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	h.mutate(c, "delete-pm", req.MachineID, lifecycle.ClearPM)
}

type notesRequest struct {
	MachineID string `json:"machineId" binding:"required"`
	Notes     string `json:"notes"`
}

// UpdateNotes replaces the free-text notes. Empty notes are cleared.
func (h *Handler) UpdateNotes(c *gin.Context) {
	var req notesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	h.mutate(c, "notes", req.MachineID, func(rec *model.MachineRecord) error {
		return lifecycle.UpdateNotes(rec, req.Notes)
	})
}

// DeleteMachine removes a single machine.
func (h *Handler) DeleteMachine(c *gin.Context) {
	var req machineIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	err := h.store.Delete(c.Request.Context(), req.MachineID)
	metrics.IncMutation("delete", err)
	if err != nil {
		h.writeError(c, "delete", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) mutate(c *gin.Context, op, machineID string, fn store.MutateFunc) {
	rec, err := h.store.Mutate(c.Request.Context(), op, machineID, fn)
	metrics.IncMutation(op, err)
	if err != nil {
		h.writeError(c, op, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "machine": rec.View()})
}
