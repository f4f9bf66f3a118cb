package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/ryujinbites/internal/service/catalog"
)

func (h *handler) listCategories(c *gin.Context) {
	categories, err := h.catalog.ListCategories(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, mapSlice(categories, toCategoryResponse))
}

func (h *handler) getCategory(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	category, err := h.catalog.GetCategory(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toCategoryResponse(category))
}

func (h *handler) createCategory(c *gin.Context) {
	var req categoryRequest
	if !h.bind(c, &req) {
		return
	}
	created, err := h.catalog.CreateCategory(c.Request.Context(), actorFrom(c), catalog.CategoryInput(req))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toCategoryResponse(created))
}

func (h *handler) updateCategory(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req categoryRequest
	if !h.bind(c, &req) {
		return
	}
	updated, err := h.catalog.UpdateCategory(c.Request.Context(), actorFrom(c), id, catalog.CategoryInput(req))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toCategoryResponse(updated))
}

func (h *handler) deleteCategory(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteCategory(c.Request.Context(), actorFrom(c), id); err != nil {
		h.fail(c, err)
		return
	}
	noContent(c)
}

func (h *handler) listProducts(c *gin.Context) {
	products, err := h.catalog.ListProducts(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, mapSlice(products, toProductResponse))
}

func (h *handler) getProduct(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	product, err := h.catalog.GetProduct(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toProductResponse(product))
}

func (h *handler) createProduct(c *gin.Context) {
	var req productRequest
	if !h.bind(c, &req) {
		return
	}
	created, err := h.catalog.CreateProduct(c.Request.Context(), actorFrom(c), catalog.ProductInput(req))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toProductResponse(created))
}

func (h *handler) updateProduct(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req productRequest
	if !h.bind(c, &req) {
		return
	}
	updated, err := h.catalog.UpdateProduct(c.Request.Context(), actorFrom(c), id, catalog.ProductInput(req))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toProductResponse(updated))
}

func (h *handler) deleteProduct(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteProduct(c.Request.Context(), actorFrom(c), id); err != nil {
		h.fail(c, err)
		return
	}
	noContent(c)
}
