package handlers

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/turulko-oleksandr/cinema-api/internal/middleware"
	"github.com/turulko-oleksandr/cinema-api/internal/models"
	"github.com/turulko-oleksandr/cinema-api/internal/services"
)

// MovieHandler handles HTTP requests for the catalog.
type MovieHandler struct {
	service  *services.MovieService
	validate *validator.Validate
}

// NewMovieHandler creates a new MovieHandler.
func NewMovieHandler(service *services.MovieService) *MovieHandler {
	return &MovieHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the public catalog routes.
func (h *MovieHandler) RegisterRoutes(router fiber.Router) {
	movieRoutes := router.Group("/movies")
	movieRoutes.Get("/", h.HandleListMovies)
	movieRoutes.Get("/:id", h.HandleGetMovie)

	for _, kind := range services.LookupKinds {
		router.Get("/"+string(kind), h.HandleListLookups(kind))
		router.Get("/"+string(kind)+"/:id", h.HandleGetLookup(kind))
	}
}

// RegisterProtectedRoutes registers catalog management routes for staff.
// The router must require authentication.
func (h *MovieHandler) RegisterProtectedRoutes(router fiber.Router) {
	router.Post("/movies", middleware.RequireStaff(), h.HandleCreateMovie)
	router.Put("/movies/:id", middleware.RequireStaff(), h.HandleUpdateMovie)
	router.Patch("/movies/:id", middleware.RequireStaff(), h.HandleUpdateMovie)
	router.Delete("/movies/:id", middleware.RequireStaff(), h.HandleDeleteMovie)

	for _, kind := range services.LookupKinds {
		path := "/" + string(kind)
		router.Post(path, middleware.RequireStaff(), h.HandleCreateLookup(kind))
		router.Patch(path+"/:id", middleware.RequireStaff(), h.HandleRenameLookup(kind))
		router.Delete(path+"/:id", middleware.RequireStaff(), h.HandleDeleteLookup(kind))
	}
}

// HandleListMovies lists movies with optional search, year and genre filters.
func (h *MovieHandler) HandleListMovies(c *fiber.Ctx) error {
	offset, limit := page(c)
	year, _ := strconv.Atoi(c.Query("year"))
	movies, total, err := h.service.ListMovies(c.UserContext(), services.MovieFilter{
		Search: c.Query("search"),
		Year:   year,
		Genre:  c.Query("genre"),
		Offset: offset,
		Limit:  limit,
	})
	if err != nil {
		return fail(c, "Could not retrieve movies", err)
	}
	return c.JSON(fiber.Map{
		"movies": movies,
		"total":  total,
	})
}

func (h *MovieHandler) HandleGetMovie(c *fiber.Ctx) error {
	movie, err := h.service.GetMovie(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, "Could not retrieve movie", err)
	}
	return c.JSON(movie)
}

// CreateMovieRequest represents the request body for adding a movie.
type CreateMovieRequest struct {
	Name          string          `json:"name" validate:"required,max=255"`
	Year          int             `json:"year" validate:"required,gte=1888,lte=2100"`
	Time          int             `json:"time" validate:"required,gt=0"`
	IMDB          float64         `json:"imdb" validate:"gte=0,lte=10"`
	Votes         int             `json:"votes" validate:"gte=0"`
	MetaScore     *float64        `json:"meta_score" validate:"omitempty,gte=0,lte=100"`
	Gross         *float64        `json:"gross" validate:"omitempty,gte=0"`
	Description   string          `json:"description" validate:"required"`
	Price         decimal.Decimal `json:"price"`
	Certification string          `json:"certification" validate:"omitempty,max=64"`
	Genres        []string        `json:"genres" validate:"dive,required"`
	Directors     []string        `json:"directors" validate:"dive,required"`
	Stars         []string        `json:"stars" validate:"dive,required"`
}

func (r CreateMovieRequest) toModel() *models.Movie {
	movie := &models.Movie{
		Name:        r.Name,
		Year:        r.Year,
		Time:        r.Time,
		IMDB:        r.IMDB,
		Votes:       r.Votes,
		MetaScore:   r.MetaScore,
		Gross:       r.Gross,
		Description: r.Description,
		Price:       r.Price.Round(2),
	}
	if r.Certification != "" {
		movie.Certification = &models.Certification{Name: r.Certification}
	}
	for _, name := range r.Genres {
		movie.Genres = append(movie.Genres, models.Genre{Name: name})
	}
	for _, name := range r.Directors {
		movie.Directors = append(movie.Directors, models.Director{Name: name})
	}
	for _, name := range r.Stars {
		movie.Stars = append(movie.Stars, models.Star{Name: name})
	}
	return movie
}

// HandleCreateMovie adds a movie to the catalog.
func (h *MovieHandler) HandleCreateMovie(c *fiber.Ctx) error {
	var req CreateMovieRequest
	if ok, err := decode(c, h.validate, &req); !ok {
		return err
	}

	movie := req.toModel()
	if err := h.service.CreateMovie(c.UserContext(), movie); err != nil {
		return fail(c, "Could not create movie", err)
	}
	return c.Status(fiber.StatusCreated).JSON(movie)
}

// UpdateMovieRequest represents the request body for changing a movie.
// Omitted fields keep their current value.
type UpdateMovieRequest struct {
	Name          *string          `json:"name" validate:"omitempty,min=1,max=255"`
	Year          *int             `json:"year" validate:"omitempty,gte=1888,lte=2100"`
	Time          *int             `json:"time" validate:"omitempty,gt=0"`
	IMDB          *float64         `json:"imdb" validate:"omitempty,gte=0,lte=10"`
	Votes         *int             `json:"votes" validate:"omitempty,gte=0"`
	MetaScore     *float64         `json:"meta_score" validate:"omitempty,gte=0,lte=100"`
	Gross         *float64         `json:"gross" validate:"omitempty,gte=0"`
	Description   *string          `json:"description" validate:"omitempty,min=1"`
	Price         *decimal.Decimal `json:"price"`
	Certification *string          `json:"certification" validate:"omitempty,max=64"`
	Genres        []string         `json:"genres" validate:"omitempty,dive,required"`
	Directors     []string         `json:"directors" validate:"omitempty,dive,required"`
	Stars         []string         `json:"stars" validate:"omitempty,dive,required"`
}

func (r UpdateMovieRequest) toUpdate() services.MovieUpdate {
	return services.MovieUpdate{
		Name:          r.Name,
		Year:          r.Year,
		Time:          r.Time,
		IMDB:          r.IMDB,
		Votes:         r.Votes,
		MetaScore:     r.MetaScore,
		Gross:         r.Gross,
		Description:   r.Description,
		Price:         r.Price,
		Certification: r.Certification,
		Genres:        r.Genres,
		Directors:     r.Directors,
		Stars:         r.Stars,
	}
}

// HandleUpdateMovie changes the fields present in the body. Serves both PUT
// and PATCH.
func (h *MovieHandler) HandleUpdateMovie(c *fiber.Ctx) error {
	var req UpdateMovieRequest
	if ok, err := decode(c, h.validate, &req); !ok {
		return err
	}

	movie, err := h.service.UpdateMovie(c.UserContext(), c.Params("id"), req.toUpdate())
	if err != nil {
		return fail(c, "Could not update movie", err)
	}
	return c.JSON(movie)
}

func (h *MovieHandler) HandleDeleteMovie(c *fiber.Ctx) error {
	if err := h.service.DeleteMovie(c.UserContext(), c.Params("id")); err != nil {
		return fail(c, "Could not delete movie", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// LookupRequest is the body for creating or renaming a genre, director,
// star or certification.
type LookupRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

func (h *MovieHandler) HandleListLookups(kind services.LookupKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		offset, limit := page(c)
		entries, total, err := h.service.ListLookups(c.UserContext(), kind, offset, limit)
		if err != nil {
			return fail(c, "Could not retrieve "+string(kind), err)
		}
		return c.JSON(fiber.Map{
			"items": entries,
			"total": total,
		})
	}
}

func (h *MovieHandler) HandleGetLookup(kind services.LookupKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		entry, err := h.service.GetLookup(c.UserContext(), kind, c.Params("id"))
		if err != nil {
			return fail(c, "Could not retrieve "+string(kind), err)
		}
		return c.JSON(entry)
	}
}

func (h *MovieHandler) HandleCreateLookup(kind services.LookupKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req LookupRequest
		if ok, err := decode(c, h.validate, &req); !ok {
			return err
		}
		entry, err := h.service.CreateLookup(c.UserContext(), kind, req.Name)
		if err != nil {
			return fail(c, "Could not create entry in "+string(kind), err)
		}
		return c.Status(fiber.StatusCreated).JSON(entry)
	}
}

func (h *MovieHandler) HandleRenameLookup(kind services.LookupKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req LookupRequest
		if ok, err := decode(c, h.validate, &req); !ok {
			return err
		}
		entry, err := h.service.RenameLookup(c.UserContext(), kind, c.Params("id"), req.Name)
		if err != nil {
			return fail(c, "Could not rename entry in "+string(kind), err)
		}
		return c.JSON(entry)
	}
}

// HandleDeleteLookup removes an entry. Movies using it lose the reference.
func (h *MovieHandler) HandleDeleteLookup(kind services.LookupKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := h.service.DeleteLookup(c.UserContext(), kind, c.Params("id")); err != nil {
			return fail(c, "Could not delete entry in "+string(kind), err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
