package fakeremote

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

// number encodes a decimal as a bare JSON number.
type number decimal.Decimal

func (n number) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(n).String()), nil
}

type transactionJSON struct {
	ID          string           `json:"id,omitempty"`
	Description string           `json:"description"`
	Price       *decimal.Decimal `json:"price"`
}

type transactionOut struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Price       number `json:"price"`
}

func (t *transaction) out() transactionOut {
	return transactionOut{ID: t.id, Description: t.description, Price: number(t.price)}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	acct, ok := s.principal(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	s.mu.Lock()
	out := make([]transactionOut, 0, len(acct.transactions))
	for _, tx := range acct.transactions {
		out = append(out, tx.out())
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	acct, ok := s.principal(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	s.mu.Lock()
	_, tx := acct.find(mux.Vars(r)["id"])
	var out transactionOut
	if tx != nil {
		out = tx.out()
	}
	s.mu.Unlock()
	if tx == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	acct, ok := s.principal(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req transactionJSON
	if err := decodeBody(w, r, &req); err != nil || req.Description == "" || req.Price == nil {
		http.Error(w, "description and price required", http.StatusUnprocessableEntity)
		return
	}

	tx := &transaction{id: newID(), description: req.Description, price: *req.Price}
	s.mu.Lock()
	acct.transactions = append(acct.transactions, tx)
	out := tx.out()
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	acct, ok := s.principal(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req transactionJSON
	if err := decodeBody(w, r, &req); err != nil || req.ID == "" || req.Description == "" || req.Price == nil {
		http.Error(w, "id, description and price required", http.StatusUnprocessableEntity)
		return
	}

	s.mu.Lock()
	_, tx := acct.find(req.ID)
	if tx != nil {
		tx.description = req.Description
		tx.price = *req.Price
	}
	s.mu.Unlock()
	if tx == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	acct, ok := s.principal(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	s.mu.Lock()
	i, tx := acct.find(mux.Vars(r)["id"])
	if tx != nil {
		acct.transactions = append(acct.transactions[:i], acct.transactions[i+1:]...)
	}
	s.mu.Unlock()
	if tx == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// find must be called with s.mu held.
func (a *account) find(id string) (int, *transaction) {
	for i, tx := range a.transactions {
		if tx.id == id {
			return i, tx
		}
	}
	return -1, nil
}
