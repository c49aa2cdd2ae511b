package intake

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/healthreport/internal/domain/healthrecord"
)

//go:embed templates/*.html
var templateFS embed.FS

var formTemplate = template.Must(template.ParseFS(templateFS, "templates/form.html"))

type genderOption struct {
	Value string
	Label string
}

type pageData struct {
	APIBase string
	Token   string
	MinAge  int
	MaxAge  int
	Genders []genderOption
}

// Page serves the browser intake form. The page calls the API under apiBase
// and sends token as its bearer, if set.
type Page struct {
	data pageData
}

func NewPage(apiBase, token string) *Page {
	return &Page{data: pageData{
		APIBase: apiBase,
		Token:   token,
		MinAge:  healthrecord.MinAge,
		MaxAge:  healthrecord.MaxAge,
		Genders: []genderOption{
			{Value: healthrecord.GenderMale, Label: "Male"},
			{Value: healthrecord.GenderFemale, Label: "Female"},
			{Value: healthrecord.GenderOther, Label: "Other"},
		},
	}}
}

// RegisterRoutes mounts the form at the root of g.
func (p *Page) RegisterRoutes(g *echo.Group) {
	g.GET("/", p.Show)
}

func (p *Page) Show(c echo.Context) error {
	var buf bytes.Buffer
	if err := formTemplate.Execute(&buf, p.data); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to render intake page").SetInternal(err)
	}
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}
