package http

import (
	"net/http"

	"wishbudget/internal/core"
	"wishbudget/internal/log"
)

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	userID := sanitizeInput(r.PathValue("user"))
	year, err := ParseYear(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}

	overview, err := s.budgets.Overview(r.Context(), userID, year)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(s.presenter(r).overview(overview)).Write(w)
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	key, err := ParseGoalKey(r, s.now())
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}

	detail, err := s.budgets.Detail(r.Context(), key)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(s.presenter(r).detail(detail)).Write(w)
}

func (s *Server) handleSetLimit(w http.ResponseWriter, r *http.Request) {
	key, err := ParseGoalKey(r, s.now())
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}

	var req limitRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	if !req.Limit.Set() {
		writeError(w, r, log.OpUpdate, badRequestf("missing field \"limit\""))
		return
	}
	limit, err := req.Limit.Money()
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}

	if err := s.budgets.SetLimit(r.Context(), key, limit); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Budget limit updated",
		log.NewFields().WithOperation(log.OpUpdate).WithGoal(key).ToSlice()...)

	// The fresh figures save the client a second round trip.
	detail, err := s.budgets.Detail(r.Context(), key)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(s.presenter(r).budget(detail.Budget)).Write(w)
}

func (s *Server) handleSaveCustomGoal(w http.ResponseWriter, r *http.Request) {
	userID := sanitizeInput(r.PathValue("user"))

	var req customGoalRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	goal, err := req.toGoal(userID, s.now())
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}

	if err := s.budgets.SaveCustomGoal(r.Context(), goal); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Custom budget saved",
		log.NewFields().WithOperation(log.OpCreate).WithGoal(goal.Key).ToSlice()...)

	detail, err := s.budgets.Detail(r.Context(), goal.Key)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Body(s.presenter(r).budget(detail.Budget)).
		Write(w)
}

func (s *Server) handleDeleteCustomGoal(w http.ResponseWriter, r *http.Request) {
	year, err := ParseYear(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	key := core.GoalKey{
		UserID: sanitizeInput(r.PathValue("user")),
		Type:   core.BudgetCustom,
		Year:   year,
		Name:   sanitizeInput(r.PathValue("name")),
	}

	if err := s.budgets.DeleteGoal(r.Context(), key); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Custom budget deleted",
		log.NewFields().WithOperation(log.OpDelete).WithGoal(key).ToSlice()...)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleExportLedger(w http.ResponseWriter, r *http.Request) {
	userID := sanitizeInput(r.PathValue("user"))
	year, err := ParseYear(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, log.OpExport, err)
		return
	}

	ref, err := s.budgets.ExportLedger(r.Context(), userID, year)
	if err != nil {
		writeError(w, r, log.OpExport, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Ledger exported",
		log.FieldUserID, userID, log.FieldYear, year, "ref", ref)
	NewJSONResponse().Body(map[string]any{
		"user_id": userID,
		"year":    year,
		"ref":     ref,
	}).Write(w)
}
