package transport

import (
	"net/http"

	"gardem-catalog/internal/domain"
	"gardem-catalog/internal/middleware"
	"gardem-catalog/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// RegisterRequest represents the registration request payload
type RegisterRequest struct {
	Name     string `json:"nombre_usuario" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"contraseña" validate:"required,min=6"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"contraseña" validate:"required"`
}

// UpdateProfileRequest changes the caller's own name or email
type UpdateProfileRequest struct {
	Name  string `json:"nombre_usuario" validate:"omitempty,max=100"`
	Email string `json:"email" validate:"omitempty,email"`
}

// ChangePasswordRequest represents the password change payload
type ChangePasswordRequest struct {
	CurrentPassword string `json:"contraseña_actual" validate:"required"`
	NewPassword     string `json:"nueva_contraseña" validate:"required,min=6"`
}

// UpdateUserRequest is the admin edit of any account
type UpdateUserRequest struct {
	Name  string `json:"nombre_usuario" validate:"omitempty,max=100"`
	Email string `json:"email" validate:"omitempty,email"`
	Role  string `json:"rol" validate:"omitempty,oneof=Cliente Administrador"`
}

// AuthResponse is returned by registration and login
type AuthResponse struct {
	Message string            `json:"mensaje"`
	Token   string            `json:"token"`
	User    domain.PublicUser `json:"usuario"`
}

// UserHandler handles HTTP requests for user operations
type UserHandler struct {
	userService service.UserService
	logger      *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

// RegisterRoutes registers all user routes
func (h *UserHandler) RegisterRoutes(r chi.Router, authMiddleware, adminMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/usuarios", func(r chi.Router) {
		// Public routes
		r.Post("/registro", h.Register)
		r.Post("/login", h.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Get("/perfil", h.GetProfile)
			r.Put("/perfil", h.UpdateProfile)
			r.Put("/cambiar-password", h.ChangePassword)
			r.Get("/verificar-token", h.VerifyToken)

			r.Group(func(r chi.Router) {
				r.Use(adminMiddleware)
				r.Get("/", h.ListUsers)
				r.Get("/{id}", h.GetUser)
				r.Put("/{id}", h.UpdateUser)
				r.Delete("/{id}", h.DeleteUser)
			})
		})
	})
}

// Register handles user registration
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	user, token, err := h.userService.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}

	h.logger.Info("User registered successfully", zap.String("user_id", user.ID.String()))
	middleware.RespondWithJSON(w, http.StatusCreated, AuthResponse{
		Message: "Usuario registrado exitosamente",
		Token:   token,
		User:    user.Public(),
	})
}

// Login handles user authentication
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	user, token, err := h.userService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, AuthResponse{
		Message: "Inicio de sesión exitoso",
		Token:   token,
		User:    user.Public(),
	})
}

// GetProfile returns the authenticated user
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "autenticación requerida")
		return
	}
	respond(w, http.StatusOK, "Perfil obtenido exitosamente", envelope{"usuario": user})
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	actor := middleware.GetActor(r.Context())
	user, err := h.userService.UpdateProfile(r.Context(), actor, actor.UserID, req.Name, req.Email)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Perfil actualizado exitosamente", envelope{"usuario": user.Public()})
}

func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	if err := h.userService.ChangePassword(r.Context(), middleware.GetActor(r.Context()), req.CurrentPassword, req.NewPassword); err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Contraseña actualizada exitosamente", nil)
}

// VerifyToken answers 200 for any token the auth middleware accepted
func (h *UserHandler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	respond(w, http.StatusOK, "Token válido", envelope{"valido": true, "usuario": user})
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.ListUsers(r.Context(), middleware.GetActor(r.Context()))
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}

	public := make([]domain.PublicUser, 0, len(users))
	for _, user := range users {
		public = append(public, user.Public())
	}
	respond(w, http.StatusOK, "Usuarios obtenidos exitosamente", envelope{"usuarios": public, "total": len(public)})
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}

	user, err := h.userService.GetUserByID(r.Context(), id)
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Usuario obtenido exitosamente", envelope{"usuario": user.Public()})
}

func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	var req UpdateUserRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	user, err := h.userService.UpdateUser(r.Context(), middleware.GetActor(r.Context()), id, req.Name, req.Email, domain.Role(req.Role))
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Usuario actualizado exitosamente", envelope{"usuario": user.Public()})
}

func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}

	if err := h.userService.DeleteUser(r.Context(), middleware.GetActor(r.Context()), id); err != nil {
		middleware.RespondWithAppError(w, r, err, h.logger)
		return
	}
	respond(w, http.StatusOK, "Usuario eliminado exitosamente", nil)
}
