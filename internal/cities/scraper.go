// Package cities resolves city names to country, timezone, coordinates and population
// by scraping encyclopedia articles.
package cities

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/alexivanou/geocity-etl/internal/httpclient"
	"github.com/alexivanou/geocity-etl/internal/model"
	"golang.org/x/net/html"
)

const (
	countryCodesArticle = "List of ISO 3166 country codes"
	timezonesArticle    = "List of tz database time zones"
)

var (
	countryPrefix      = regexp.MustCompile(`^[\p{L}\p{N}_\s-]+`)
	populationTitle    = regexp.MustCompile(`^[Pp]opulation`)
	populationRowLabel = regexp.MustCompile(`(?i)city|metro|municipality|total`)
	leadingNumber      = regexp.MustCompile(`^[\d,]+`)
	fourDigits         = regexp.MustCompile(`\d{4}`)
)

// Scraper looks cities up on the encyclopedia at baseURL
type Scraper struct {
	client  *httpclient.Client
	baseURL string
}

// NewScraper creates a scraper. The client should carry a descriptive User-Agent.
func NewScraper(client *httpclient.Client, baseURL string) *Scraper {
	return &Scraper{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Locate resolves every name in names. Cities that cannot be scraped are reported
// as failures and skipped. Failing to load the reference pages is an error.
func (s *Scraper) Locate(ctx context.Context, names []string) (model.Result[model.CityRecord], error) {
	var result model.Result[model.CityRecord]

	codes, err := s.article(ctx, countryCodesArticle)
	if err != nil {
		return result, fmt.Errorf("failed to load country codes: %w", err)
	}
	zones, err := s.article(ctx, timezonesArticle)
	if err != nil {
		return result, fmt.Errorf("failed to load timezones: %w", err)
	}

	for i, name := range names {
		record, err := s.locate(ctx, name, codes, zones)
		if err != nil {
			result.Fail(i, name, err)
			continue
		}
		result.Rows = append(result.Rows, record)
	}

	return result, nil
}

func (s *Scraper) locate(ctx context.Context, name string, codes, zones *goquery.Document) (model.CityRecord, error) {
	doc, err := s.article(ctx, name)
	if err != nil {
		return model.CityRecord{}, err
	}

	population, err := Population(doc)
	if err != nil {
		return model.CityRecord{}, err
	}
	year, err := PopulationYear(doc)
	if err != nil {
		return model.CityRecord{}, err
	}
	country, err := Country(doc)
	if err != nil {
		return model.CityRecord{}, err
	}
	code, err := CountryCode(codes, country)
	if err != nil {
		return model.CityRecord{}, err
	}
	tz, err := Timezone(zones, code)
	if err != nil {
		return model.CityRecord{}, err
	}
	lat, lon, err := Geo(doc)
	if err != nil {
		return model.CityRecord{}, err
	}

	return model.CityRecord{
		Name:           name,
		CountryCode:    code,
		Population:     population,
		PopulationYear: year,
		Latitude:       lat,
		Longitude:      lon,
		Timezone:       tz,
	}, nil
}

func (s *Scraper) article(ctx context.Context, title string) (*goquery.Document, error) {
	u := s.baseURL + "/wiki/" + url.PathEscape(strings.ReplaceAll(title, " ", "_"))
	resp, err := s.client.Get(ctx, u, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to reach article %q: %w", title, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse article %q: %w", title, err)
	}
	return doc, nil
}

// Country returns the country named in the article's infobox
func Country(doc *goquery.Document) (string, error) {
	label := doc.Find("th.infobox-label").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.TrimSpace(s.Text()) == "Country"
	}).First()
	if label.Length() == 0 {
		return "", errors.New("no country in infobox")
	}

	data := findNext(doc, label.Nodes[0], "infobox-data")
	if data == nil {
		return "", errors.New("no country value in infobox")
	}

	country := strings.TrimSpace(countryPrefix.FindString(strings.TrimSpace(data.Text())))
	if country == "" {
		return "", errors.New("empty country in infobox")
	}
	return country, nil
}

// CountryCode looks up the ISO 3166-1 alpha-2 code of country in the country code list
func CountryCode(codes *goquery.Document, country string) (string, error) {
	link := codes.Find("td a").FilterFunction(func(_ int, s *goquery.Selection) bool {
		title, _ := s.Attr("title")
		return title == country
	}).First()
	if link.Length() == 0 {
		return "", fmt.Errorf("country %q not in country code list", country)
	}

	cell := link.Closest("td").NextAllFiltered("td").Eq(2)
	code := strings.TrimSpace(cell.Text())
	if code == "" {
		return "", fmt.Errorf("no country code for %q", country)
	}
	return code, nil
}

// Timezone returns the first time zone listed for the country code
func Timezone(zones *goquery.Document, code string) (string, error) {
	var cell *goquery.Selection
	for _, root := range zones.Nodes {
		n := findText(root, func(text string, n *html.Node) bool {
			if strings.TrimSpace(text) != code {
				return false
			}
			return zones.FindNodes(n.Parent).Closest("td").Length() > 0
		})
		if n != nil {
			cell = zones.FindNodes(n.Parent).Closest("td")
			break
		}
	}
	if cell == nil {
		return "", fmt.Errorf("country code %q not in timezone list", code)
	}

	tz := strings.TrimSpace(cell.NextAllFiltered("td").First().Text())
	if tz == "" {
		return "", fmt.Errorf("no timezone for %q", code)
	}
	return tz, nil
}

// Geo parses the article's "lat; lon" coordinates
func Geo(doc *goquery.Document) (float64, float64, error) {
	geo := doc.Find("span.geo").First()
	if geo.Length() == 0 {
		return 0, 0, errors.New("no coordinates in article")
	}

	parts := strings.Split(geo.Text(), "; ")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("unexpected coordinates %q", geo.Text())
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid longitude: %w", err)
	}
	return lat, lon, nil
}

// Population returns the population figure from the infobox. Infoboxes either carry the
// figure next to the "Population" label or list it in a following row for city, metro,
// municipality or total.
func Population(doc *goquery.Document) (int64, error) {
	title, err := populationHeading(doc)
	if err != nil {
		return 0, err
	}

	var data *goquery.Selection
	if title.HasClass("infobox-label") {
		data = findNext(doc, title.Nodes[0], "infobox-data")
	} else {
		row := title.Parent().NextAllFiltered(".mergedrow").FilterFunction(func(_ int, s *goquery.Selection) bool {
			return populationRowLabel.MatchString(s.Text())
		}).First()
		if row.Length() > 0 {
			data = findNext(doc, row.Nodes[0], "infobox-data")
		}
	}
	if data == nil {
		return 0, errors.New("no population value in infobox")
	}

	digits := leadingNumber.FindString(strings.TrimSpace(data.Text()))
	if digits == "" {
		return 0, fmt.Errorf("unexpected population %q", strings.TrimSpace(data.Text()))
	}
	population, err := strconv.ParseInt(strings.ReplaceAll(digits, ",", ""), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid population: %w", err)
	}
	return population, nil
}

// PopulationYear returns the year stated in the infobox's population heading
func PopulationYear(doc *goquery.Document) (int, error) {
	title, err := populationHeading(doc)
	if err != nil {
		return 0, err
	}

	year := fourDigits.FindString(title.Text())
	if year == "" {
		return 0, errors.New("no year in population heading")
	}
	return strconv.Atoi(year)
}

func populationHeading(doc *goquery.Document) (*goquery.Selection, error) {
	infobox := doc.Find("table.infobox").First()
	if infobox.Length() == 0 {
		return nil, errors.New("no infobox in article")
	}

	n := findText(infobox.Nodes[0], func(text string, _ *html.Node) bool {
		return populationTitle.MatchString(text)
	})
	if n == nil || n.Parent == nil {
		return nil, errors.New("no population in infobox")
	}
	return doc.FindNodes(n.Parent), nil
}

// findText returns the first text node below root, in document order, accepted by match
func findText(root *html.Node, match func(string, *html.Node) bool) *html.Node {
	if root.Type == html.TextNode && match(root.Data, root) {
		return root
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if n := findText(c, match); n != nil {
			return n
		}
	}
	return nil
}

// findNext returns the first element after from, in document order, carrying class
func findNext(doc *goquery.Document, from *html.Node, class string) *goquery.Selection {
	for n := nextNode(from); n != nil; n = nextNode(n) {
		if n.Type == html.ElementNode && hasClass(n, class) {
			return doc.FindNodes(n)
		}
	}
	return nil
}

func nextNode(n *html.Node) *html.Node {
	if n.FirstChild != nil {
		return n.FirstChild
	}
	for ; n != nil; n = n.Parent {
		if n.NextSibling != nil {
			return n.NextSibling
		}
	}
	return nil
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(a.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}
