package http

import (
	"net/http"

	"wishbudget/internal/log"
)

func (s *Server) handleUpdatePaidAmount(w http.ResponseWriter, r *http.Request) {
	userID := sanitizeInput(r.PathValue("user"))
	claimID := sanitizeInput(r.PathValue("id"))

	var req paidAmountRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	if !req.PaidAmount.Set() {
		writeError(w, r, log.OpUpdate, badRequestf("missing field \"paid_amount\""))
		return
	}
	paid, err := req.PaidAmount.Money()
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}

	if err := s.budgets.UpdatePaidAmount(r.Context(), userID, claimID, paid); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}

	fields := log.NewFields().WithOperation(log.OpUpdate).WithUser(userID)
	fields[log.FieldClaimID] = claimID
	if paid != nil {
		fields[log.FieldAmount] = paid.Cents
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Paid amount updated", fields.ToSlice()...)

	NewJSONResponse().Body(map[string]any{
		"id":          claimID,
		"paid_amount": s.presenter(r).optionalMoney(paid),
	}).Write(w)
}

func (s *Server) handleCancelClaim(w http.ResponseWriter, r *http.Request) {
	userID := sanitizeInput(r.PathValue("user"))
	claimID := sanitizeInput(r.PathValue("id"))

	if err := s.budgets.CancelClaim(r.Context(), userID, claimID); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Claim cancelled",
		log.FieldUserID, userID, log.FieldClaimID, claimID)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleAddExternalGift(w http.ResponseWriter, r *http.Request) {
	userID := sanitizeInput(r.PathValue("user"))

	var req externalGiftRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	row, err := req.toRow(userID, s.now())
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}

	id, err := s.budgets.AddExternalGift(r.Context(), row)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "External gift logged",
		log.FieldUserID, userID,
		log.FieldGiftID, id,
		log.FieldAmount, row.PaidAmount.Cents,
		"theme", string(row.Theme))

	p := s.presenter(r)
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/users/"+userID+"/external-gifts/"+id).
		Body(map[string]any{
			"id":            id,
			"title":         row.Title,
			"theme":         row.Theme,
			"paid_amount":   p.money(row.PaidAmount),
			"purchase_date": row.PurchaseDate.String(),
		}).
		Write(w)
}

func (s *Server) handleDeleteExternalGift(w http.ResponseWriter, r *http.Request) {
	userID := sanitizeInput(r.PathValue("user"))
	id := sanitizeInput(r.PathValue("id"))

	if err := s.budgets.DeleteExternalGift(r.Context(), userID, id); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "External gift deleted",
		log.FieldUserID, userID, log.FieldGiftID, id)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
