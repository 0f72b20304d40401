package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"quiz-platform/internal/app"
	"quiz-platform/internal/domain"
)

// CatalogHandler serves categories and tags.
type CatalogHandler struct {
	Handler
	categories *app.CategoryService
	tags       *app.TagService
}

func NewCatalogHandler(h Handler, categories *app.CategoryService, tags *app.TagService) *CatalogHandler {
	return &CatalogHandler{Handler: h, categories: categories, tags: tags}
}

type idRequest struct {
	ID string `param:"id" json:"-" validate:"required"`
}

type listCategoriesRequest struct {
	Search string `query:"search" validate:"max=255"`
	// "null" selects root categories
	ParentID string `query:"parentId"`
	PageQuery
}

type createCategoryRequest struct {
	Name        string  `json:"name" validate:"required,min=1,max=255"`
	Description string  `json:"description" validate:"max=1000"`
	ParentID    *string `json:"parentId"`
}

type updateCategoryRequest struct {
	ID          string           `param:"id" json:"-" validate:"required"`
	Name        *string          `json:"name" validate:"omitempty,min=1,max=255"`
	Description *string          `json:"description" validate:"omitempty,max=1000"`
	ParentID    nullable[string] `json:"parentId"`
}

func (h *CatalogHandler) ListCategories(c echo.Context, req *listCategoriesRequest) (domain.Paginated[domain.Category], error) {
	f := domain.CategoryFilter{Search: req.Search, Page: req.toPage()}
	if req.ParentID == "null" {
		f.RootsOnly = true
	} else {
		f.ParentID = req.ParentID
	}
	return h.categories.List(c.Request().Context(), f)
}

func (h *CatalogHandler) Hierarchy(c echo.Context, _ *noRequest) ([]domain.Category, error) {
	return h.categories.Hierarchy(c.Request().Context())
}

func (h *CatalogHandler) GetCategory(c echo.Context, req *idRequest) (domain.Category, error) {
	return h.categories.Get(c.Request().Context(), req.ID)
}

func (h *CatalogHandler) CreateCategory(c echo.Context, req *createCategoryRequest) (domain.Category, error) {
	return h.categories.Create(c.Request().Context(), app.CategoryInput{
		Name:        req.Name,
		Description: req.Description,
		ParentID:    req.ParentID,
	})
}

func (h *CatalogHandler) UpdateCategory(c echo.Context, req *updateCategoryRequest) (domain.Category, error) {
	return h.categories.Update(c.Request().Context(), req.ID, app.CategoryPatch{
		Name:        req.Name,
		Description: req.Description,
		ParentID:    clearable(req.ParentID),
	})
}

func (h *CatalogHandler) DeleteCategory(c echo.Context, req *idRequest) (map[string]any, error) {
	category, err := h.categories.Delete(c.Request().Context(), req.ID)
	if err != nil {
		return nil, err
	}
	return deleted("Category", "category", category), nil
}

type listTagsRequest struct {
	Search string `query:"search" validate:"max=255"`
	PageQuery
}

type popularTagsRequest struct {
	Limit int `query:"limit" validate:"gte=0,lte=100"`
}

type createTagRequest struct {
	Name  string `json:"name" validate:"required,min=1,max=50"`
	Color string `json:"color" validate:"omitempty,hexcolor"`
}

type updateTagRequest struct {
	ID    string  `param:"id" json:"-" validate:"required"`
	Name  *string `json:"name" validate:"omitempty,min=1,max=50"`
	Color *string `json:"color" validate:"omitempty,hexcolor"`
}

func (h *CatalogHandler) ListTags(c echo.Context, req *listTagsRequest) (domain.Paginated[domain.Tag], error) {
	return h.tags.List(c.Request().Context(), domain.TagFilter{Search: req.Search, Page: req.toPage()})
}

func (h *CatalogHandler) PopularTags(c echo.Context, req *popularTagsRequest) ([]domain.Tag, error) {
	return h.tags.Popular(c.Request().Context(), req.Limit)
}

func (h *CatalogHandler) GetTag(c echo.Context, req *idRequest) (domain.Tag, error) {
	return h.tags.Get(c.Request().Context(), req.ID)
}

func (h *CatalogHandler) CreateTag(c echo.Context, req *createTagRequest) (domain.Tag, error) {
	return h.tags.Create(c.Request().Context(), app.TagInput{Name: req.Name, Color: req.Color})
}

func (h *CatalogHandler) UpdateTag(c echo.Context, req *updateTagRequest) (domain.Tag, error) {
	return h.tags.Update(c.Request().Context(), req.ID, app.TagPatch{Name: req.Name, Color: req.Color})
}

func (h *CatalogHandler) DeleteTag(c echo.Context, req *idRequest) (map[string]any, error) {
	tag, err := h.tags.Delete(c.Request().Context(), req.ID)
	if err != nil {
		return nil, err
	}
	return deleted("Tag", "tag", tag), nil
}

func (h *CatalogHandler) register(categories, tags *echo.Group) {
	admin := []echo.MiddlewareFunc{h.auth.Authenticate, h.auth.RequireAdmin()}

	categories.GET("", Handle(http.StatusOK, h.ListCategories))
	categories.GET("/hierarchy", Handle(http.StatusOK, h.Hierarchy))
	categories.GET("/:id", Handle(http.StatusOK, h.GetCategory))
	categories.POST("", Handle(http.StatusCreated, h.CreateCategory), admin...)
	categories.PUT("/:id", Handle(http.StatusOK, h.UpdateCategory), admin...)
	categories.DELETE("/:id", Handle(http.StatusOK, h.DeleteCategory), admin...)

	tags.GET("", Handle(http.StatusOK, h.ListTags))
	tags.GET("/popular", Handle(http.StatusOK, h.PopularTags))
	tags.GET("/:id", Handle(http.StatusOK, h.GetTag))
	tags.POST("", Handle(http.StatusCreated, h.CreateTag), admin...)
	tags.PUT("/:id", Handle(http.StatusOK, h.UpdateTag), admin...)
	tags.DELETE("/:id", Handle(http.StatusOK, h.DeleteTag), admin...)
}
