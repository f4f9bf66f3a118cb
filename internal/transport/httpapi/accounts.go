package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/ryujinbites/internal/service/identity"
)

func (r registerRequest) newUser() identity.NewUser {
	return identity.NewUser{Name: r.Name, Email: r.Email, Phone: r.Phone, Password: r.Password}
}

func (h *handler) register(c *gin.Context) {
	var req registerRequest
	if !h.bind(c, &req) {
		return
	}
	user, err := h.accounts.Register(c.Request.Context(), req.newUser())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toUserResponse(user))
}

func (h *handler) createUser(c *gin.Context) {
	var req createUserRequest
	if !h.bind(c, &req) {
		return
	}
	user, err := h.accounts.CreateUser(c.Request.Context(), actorFrom(c), identity.CreateUserInput{
		NewUser: req.newUser(),
		Role:    req.Role,
		Title:   req.Title,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toUserResponse(user))
}

func (h *handler) listUsers(c *gin.Context) {
	users, err := h.accounts.ListUsers(c.Request.Context(), actorFrom(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, mapSlice(users, toUserResponse))
}

func (h *handler) getUser(c *gin.Context) {
	user, err := h.accounts.GetUser(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

func (h *handler) editUser(c *gin.Context) {
	var req editUserRequest
	if !h.bind(c, &req) {
		return
	}
	user, err := h.accounts.EditUser(c.Request.Context(), actorFrom(c), c.Param("id"), identity.EditUserInput(req))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

func (h *handler) deleteUser(c *gin.Context) {
	if err := h.accounts.DeleteUser(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	noContent(c)
}

func (h *handler) getProfile(c *gin.Context) {
	profile, err := h.accounts.GetProfile(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toProfileResponse(profile))
}

func (h *handler) updateProfile(c *gin.Context) {
	var req profileRequest
	if !h.bind(c, &req) {
		return
	}
	profile, err := h.accounts.UpdateProfile(c.Request.Context(), actorFrom(c), c.Param("id"), identity.ProfileInput(req))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toProfileResponse(profile))
}

func (h *handler) listCustomers(c *gin.Context) {
	customers, err := h.accounts.ListCustomers(c.Request.Context(), actorFrom(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, mapSlice(customers, toProfileResponse))
}

func (h *handler) listAdministrators(c *gin.Context) {
	admins, err := h.accounts.ListAdministrators(c.Request.Context(), actorFrom(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, mapSlice(admins, toAdministratorResponse))
}

func (h *handler) getAdministrator(c *gin.Context) {
	admin, err := h.accounts.GetAdministrator(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toAdministratorResponse(admin))
}

func (h *handler) updateAdministrator(c *gin.Context) {
	var req administratorRequest
	if !h.bind(c, &req) {
		return
	}
	admin, err := h.accounts.UpdateAdministrator(c.Request.Context(), actorFrom(c), c.Param("id"), identity.AdministratorInput(req))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toAdministratorResponse(admin))
}
