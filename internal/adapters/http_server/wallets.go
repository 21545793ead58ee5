package httpserver

import (
	"net/http"
	"strconv"

	"staylio/internal/domain"
)

func walletLimit(r *http.Request) int {
	l, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		return 0
	}
	return l
}

func (h *Handlers) adminWallet(w http.ResponseWriter, r *http.Request) {
	h.wallet(w, r, domain.PlatformOwner())
}

func (h *Handlers) hostWallet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.wallet(w, r, domain.HostOwner(id))
}

func (h *Handlers) userWallet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.wallet(w, r, domain.GuestOwner(&id))
}

func (h *Handlers) wallet(w http.ResponseWriter, r *http.Request, owner domain.WalletOwner) {
	v, err := h.Q.Wallet(r.Context(), owner, walletLimit(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
