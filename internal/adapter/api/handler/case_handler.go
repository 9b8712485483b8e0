package handler

import (
	"github.com/labstack/echo/v4"

	"casepay/internal/domain/entity"
	"casepay/internal/usecase"
	"casepay/pkg/errors"
	"casepay/pkg/response"
)

type CaseHandler struct {
	caseUC *usecase.CaseUseCase
}

func NewCaseHandler(caseUC *usecase.CaseUseCase) *CaseHandler {
	return &CaseHandler{
		caseUC: caseUC,
	}
}

type RegisterCaseRequest struct {
	CaseNumber    string  `json:"case_number" validate:"required,max=64"`
	RequesterID   string  `json:"requester_id" validate:"required"`
	DisputeAmount float64 `json:"dispute_amount" validate:"gte=0"`
	FeeWaived     bool    `json:"fee_waived"`
}

type TransitionStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Note   string `json:"note,omitempty" validate:"max=1000"`
}

func (h *CaseHandler) RegisterCase(c echo.Context) error {
	var req RegisterCaseRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, errors.BadRequest("Validation failed", err))
	}

	caller, err := callerFrom(c)
	if err != nil {
		return response.Error(c, err)
	}

	created, err := h.caseUC.RegisterCase(c.Request().Context(), usecase.RegisterCaseInput{
		CaseNumber:    req.CaseNumber,
		RequesterID:   req.RequesterID,
		DisputeAmount: req.DisputeAmount,
		FeeWaived:     req.FeeWaived,
	}, caller.UID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, created)
}

func (h *CaseHandler) GetCase(c echo.Context) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return response.Error(c, err)
	}

	caller, err := callerFrom(c)
	if err != nil {
		return response.Error(c, err)
	}

	found, err := h.caseUC.GetCase(c.Request().Context(), id, caller)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, found)
}

func (h *CaseHandler) TransitionStatus(c echo.Context) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return response.Error(c, err)
	}

	var req TransitionStatusRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, errors.BadRequest("Validation failed", err))
	}

	caller, err := callerFrom(c)
	if err != nil {
		return response.Error(c, err)
	}

	updated, err := h.caseUC.TransitionStatus(c.Request().Context(), id, usecase.TransitionCaseInput{
		Status: entity.CaseStatus(req.Status),
		Note:   req.Note,
	}, caller)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, updated)
}
