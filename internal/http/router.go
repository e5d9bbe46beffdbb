package http

import (
	"net/http"
	"strings"
)

// RouterConfig bundles the handlers mounted by NewRouter. Protect wraps the
// mutating routes with session validation; read-only program routes stay
// public. Middleware wraps the whole router, outermost first.
type RouterConfig struct {
	Auth       *AuthHandler
	Days       *DayHandler
	Halls      *HallHandler
	Slots      *SlotHandler
	Sessions   *SessionHandler
	Persons    *PersonHandler
	Stream     http.Handler
	Protect    func(http.Handler) http.Handler
	Middleware []func(http.Handler) http.Handler
}

// NewRouter assembles the HTTP API.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.Auth != nil {
		mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Auth.Login(w, r)
		})
		logout := protect(cfg.Protect, cfg.Auth.Logout)
		mux.HandleFunc("/logout", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			logout(w, r)
		})
		register := protect(cfg.Protect, cfg.Auth.Register)
		mux.HandleFunc("/accounts", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			register(w, r)
		})
	}

	if cfg.Days != nil {
		createDay := protect(cfg.Protect, cfg.Days.Create)
		updateDay := protect(cfg.Protect, cfg.Days.Update)
		deleteDay := protect(cfg.Protect, cfg.Days.Delete)
		assignHall := protect(cfg.Protect, cfg.Days.AssignHall)
		ensureSlots := protect(cfg.Protect, cfg.Days.EnsureSlots)

		mux.HandleFunc("/days", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Days.List(w, r)
			case http.MethodPost:
				createDay(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/days/", func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/days/")
			if rest == "" {
				http.NotFound(w, r)
				return
			}
			parts := strings.Split(rest, "/")
			r = r.WithContext(ContextWithEntityID(r.Context(), parts[0]))

			switch {
			case len(parts) == 1:
				switch r.Method {
				case http.MethodGet:
					cfg.Days.Get(w, r)
				case http.MethodPut:
					updateDay(w, r)
				case http.MethodDelete:
					deleteDay(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
				}
			case len(parts) == 2 && parts[1] == "halls":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				assignHall(w, r)
			case len(parts) == 3 && parts[1] == "halls":
				if r.Method != http.MethodDelete {
					methodNotAllowed(w, http.MethodDelete)
					return
				}
				hallID := parts[2]
				protect(cfg.Protect, func(w http.ResponseWriter, r *http.Request) {
					cfg.Days.RemoveHall(w, r, hallID)
				})(w, r)
			case len(parts) == 2 && parts[1] == "slots":
				switch r.Method {
				case http.MethodGet:
					cfg.Days.ListSlots(w, r)
				case http.MethodPost:
					ensureSlots(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPost)
				}
			case len(parts) == 2 && parts[1] == "grid":
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Days.Grid(w, r)
			default:
				http.NotFound(w, r)
			}
		})
	}

	if cfg.Halls != nil {
		createHall := protect(cfg.Protect, cfg.Halls.Create)
		updateHall := protect(cfg.Protect, cfg.Halls.Update)
		deleteHall := protect(cfg.Protect, cfg.Halls.Delete)

		mux.HandleFunc("/halls", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Halls.List(w, r)
			case http.MethodPost:
				createHall(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/halls/", func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, "/halls/")
			if id == "" || strings.Contains(id, "/") {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithEntityID(r.Context(), id))
			switch r.Method {
			case http.MethodGet:
				cfg.Halls.Get(w, r)
			case http.MethodPut:
				updateHall(w, r)
			case http.MethodDelete:
				deleteHall(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
			}
		})
	}

	if cfg.Slots != nil {
		updateSlot := protect(cfg.Protect, cfg.Slots.Update)
		deleteSlot := protect(cfg.Protect, cfg.Slots.Delete)

		mux.HandleFunc("/slots/", func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, "/slots/")
			if id == "" || strings.Contains(id, "/") {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithEntityID(r.Context(), id))
			switch r.Method {
			case http.MethodPut:
				updateSlot(w, r)
			case http.MethodDelete:
				deleteSlot(w, r)
			default:
				methodNotAllowed(w, http.MethodPut, http.MethodDelete)
			}
		})
	}

	if cfg.Sessions != nil {
		createSession := protect(cfg.Protect, cfg.Sessions.Create)
		updateSession := protect(cfg.Protect, cfg.Sessions.Update)
		deleteSession := protect(cfg.Protect, cfg.Sessions.Delete)

		mux.HandleFunc("/sessions", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Sessions.List(w, r)
			case http.MethodPost:
				createSession(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/sessions/", func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, "/sessions/")
			if id == "" || strings.Contains(id, "/") {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithEntityID(r.Context(), id))
			switch r.Method {
			case http.MethodGet:
				cfg.Sessions.Get(w, r)
			case http.MethodPut:
				updateSession(w, r)
			case http.MethodDelete:
				deleteSession(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
			}
		})
	}

	if cfg.Persons != nil {
		createPerson := protect(cfg.Protect, cfg.Persons.Create)
		updatePerson := protect(cfg.Protect, cfg.Persons.Update)
		deletePerson := protect(cfg.Protect, cfg.Persons.Delete)

		mux.HandleFunc("/persons", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Persons.List(w, r)
			case http.MethodPost:
				createPerson(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/persons/", func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, "/persons/")
			if id == "" || strings.Contains(id, "/") {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithEntityID(r.Context(), id))
			switch r.Method {
			case http.MethodGet:
				cfg.Persons.Get(w, r)
			case http.MethodPut:
				updatePerson(w, r)
			case http.MethodDelete:
				deletePerson(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
			}
		})
	}

	if cfg.Stream != nil {
		mux.Handle("/stream", cfg.Stream)
	}

	var handler http.Handler = mux
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}
	return handler
}

func protect(mw func(http.Handler) http.Handler, h http.HandlerFunc) http.HandlerFunc {
	if mw == nil {
		return h
	}
	wrapped := mw(h)
	return wrapped.ServeHTTP
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
