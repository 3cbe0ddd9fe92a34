package html

import (
	"encoding/json"
	"fmt"
	stdhtml "html"

	"github.com/julvo/htmlgo"
	a "github.com/julvo/htmlgo/attributes"

	"github.com/cheesesashimi/cookiescraper/pkg/geo"
	"github.com/cheesesashimi/cookiescraper/pkg/search"
	"github.com/cheesesashimi/cookiescraper/pkg/view"
)

const naverMapsSDK string = "https://oapi.map.naver.com/openapi/v3/maps.js?ncpKeyId="

// PageConfig is handed to the browser script as JSON.
type PageConfig struct {
	DefaultKeyword      string                  `json:"defaultKeyword"`
	Map                 view.MapOptions         `json:"map"`
	Geolocation         view.GeolocationOptions `json:"geolocation"`
	GeolocationMessages map[string]string       `json:"geolocationMessages"`
	SearchEndpoint      string                  `json:"searchEndpoint"`
}

// IndexPage is the interactive map page.
func IndexPage(mapClientID, scriptPath string, cfg PageConfig) (htmlgo.HTML, error) {
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("could not encode page config: %w", err)
	}

	controls := htmlgo.Div([]a.Attribute{a.Class_("search-box")},
		htmlgo.Input([]a.Attribute{
			a.Type_("text"),
			a.Id_("searchInput"),
			a.Value_(cfg.DefaultKeyword),
			a.Placeholder_("찾고 싶은 메뉴를 입력하세요"),
		}),
		htmlgo.Button([]a.Attribute{a.Id_("searchBtn")}, htmlgo.Text("🔍 검색")),
		htmlgo.Button([]a.Attribute{a.Id_("locationBtn")}, htmlgo.Text("📍 내 위치에서 찾기")),
		htmlgo.Label_(
			htmlgo.Input([]a.Attribute{a.Type_("checkbox"), a.Id_("detailedSearch")}),
			htmlgo.Text(" 상세 검색 (리뷰/메뉴 확인, 느림)"),
		),
	)

	status := htmlgo.Div_(
		htmlgo.Div([]a.Attribute{a.Id_("loading"), a.Style_("display:none")},
			htmlgo.Span([]a.Attribute{a.Id_("loadingText")}, htmlgo.Text("매장 정보를 불러오는 중...")),
		),
		htmlgo.Div([]a.Attribute{a.Id_("errorMessage"), a.Class_("error"), a.Style_("display:none")}),
		htmlgo.Div([]a.Attribute{a.Id_("infoPanel"), a.Style_("display:none")},
			htmlgo.P([]a.Attribute{a.Id_("storeCount")}),
			htmlgo.P([]a.Attribute{a.Id_("locationInfo")}),
		),
	)

	return htmlgo.Html5_(
		htmlgo.Head_(
			htmlgo.HTML(`<meta charset="utf-8">`),
			htmlgo.HTML(`<meta name="viewport" content="width=device-width, initial-scale=1">`),
			htmlgo.Title_(htmlgo.Text("🍪 두바이쫀득쿠키 지도")),
			htmlgo.HTML("<style>"+pageStyle+"</style>"),
		),
		htmlgo.Body_(
			htmlgo.H1_(htmlgo.Text("🍪 두바이쫀득쿠키 판매처 찾기")),
			controls,
			status,
			htmlgo.Div([]a.Attribute{a.Id_("map")}),
			jsonScript("app-config", cfgJSON),
			scriptTag(naverMapsSDK+mapClientID),
			scriptTag(scriptPath),
		),
	), nil
}

// StoresPage is a static listing of a search result.
func StoresPage(keyword string, res *search.Result) htmlgo.HTML {
	heading := fmt.Sprintf("%s: %d개 매장 (%s)", keyword, len(res.Stores), res.Method)

	var body htmlgo.HTML
	if len(res.Stores) == 0 {
		body = htmlgo.P_(htmlgo.Text("검색 결과가 없습니다."))
	} else {
		body = getStoreTable(res)
	}

	return htmlgo.Html5_(
		htmlgo.Head_(
			htmlgo.HTML(`<meta charset="utf-8">`),
			htmlgo.Title_(htmlgo.Text(heading)),
		),
		htmlgo.Body_(
			htmlgo.H2_(htmlgo.Text(heading)),
			body,
		),
	)
}

func getStoreTable(res *search.Result) htmlgo.HTML {
	rows := []htmlgo.HTML{
		htmlgo.Tr_(
			htmlgo.Th_(htmlgo.Text("#")),
			htmlgo.Th_(htmlgo.Text("매장")),
			htmlgo.Th_(htmlgo.Text("거리")),
			htmlgo.Th_(htmlgo.Text("주소")),
			htmlgo.Th_(htmlgo.Text("전화")),
			htmlgo.Th_(htmlgo.Text("분류")),
		),
	}

	for i, s := range res.Stores {
		label := fmt.Sprintf("%d", i+1)
		if i < 3 && res.Origin != nil {
			label += " ⭐"
		}

		distance := ""
		if s.Distance != nil {
			distance = geo.FormatDistance(*s.Distance)
		}

		name := htmlgo.Text(s.Name)
		if s.Link != "" {
			name = htmlgo.A([]a.Attribute{a.Href_(s.Link)}, htmlgo.Text(s.Name))
		}

		phone := ""
		if s.HasPhone() {
			phone = s.Phone
		}

		rows = append(rows, htmlgo.Tr_(
			htmlgo.Td_(htmlgo.Text(label)),
			htmlgo.Td_(name),
			htmlgo.Td_(htmlgo.Text(distance)),
			htmlgo.Td_(htmlgo.Text(s.DisplayAddress())),
			htmlgo.Td_(htmlgo.Text(phone)),
			htmlgo.Td_(htmlgo.Text(s.Category)),
		))
	}

	return htmlgo.Table_(rows...)
}

func scriptTag(src string) htmlgo.HTML {
	return htmlgo.HTML(fmt.Sprintf(`<script src="%s"></script>`, stdhtml.EscapeString(src)))
}

// jsonScript embeds data for the page script. json.Marshal already escapes
// '<' so the payload cannot close the tag.
func jsonScript(id string, data []byte) htmlgo.HTML {
	return htmlgo.HTML(fmt.Sprintf(`<script id="%s" type="application/json">%s</script>`, stdhtml.EscapeString(id), data))
}

const pageStyle string = `
body { font-family: sans-serif; margin: 0; padding: 16px; }
#map { width: 100%; height: 70vh; margin-top: 12px; }
.search-box { display: flex; gap: 8px; flex-wrap: wrap; align-items: center; }
.error { color: #c0392b; margin-top: 8px; }
.info-window { background: white; padding: 12px; border-radius: 8px; box-shadow: 0 2px 6px rgba(0,0,0,0.3); max-width: 260px; }
.info-window .label { color: #666; }
.info-window .category { color: #999; font-size: 12px; }
.store-marker { color: white; padding: 8px 12px; border-radius: 20px; font-weight: bold; font-size: 14px; white-space: nowrap; background: #667eea; box-shadow: 0 2px 6px rgba(0,0,0,0.3); }
.store-marker.highlighted { background: #FF6B6B; border: 2px solid #FFD700; }
.my-location { width: 20px; height: 20px; background: #4285F4; border: 3px solid white; border-radius: 50%; box-shadow: 0 2px 6px rgba(0,0,0,0.4); }
`
