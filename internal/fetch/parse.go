package fetch

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ListingCard is one article reference on the news listing page.
type ListingCard struct {
	URL       string
	Title     string
	TimeLabel string
}

// ListingGroup is the set of cards under one date header.
type ListingGroup struct {
	DateLabel string
	Cards     []ListingCard
}

// ParseListing extracts date-grouped article cards from a news listing page.
// Cards that appear before any date header are grouped under an empty label.
func ParseListing(html []byte) ([]ListingGroup, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse listing html: %w", err)
	}

	groups := make([]ListingGroup, 0, 4)
	current := -1

	doc.Find(".news-list").Children().Each(func(_ int, s *goquery.Selection) {
		switch {
		case s.HasClass("news-list__date"):
			groups = append(groups, ListingGroup{DateLabel: strings.TrimSpace(s.Text())})
			current = len(groups) - 1
		case s.HasClass("news-item"):
			link := s.Find("a.news-item__title").First()
			href, ok := link.Attr("href")
			if !ok || strings.TrimSpace(href) == "" {
				return
			}
			card := ListingCard{
				URL:       strings.TrimSpace(href),
				Title:     strings.TrimSpace(link.Text()),
				TimeLabel: strings.TrimSpace(s.Find(".news-item__time").First().Text()),
			}
			if current < 0 {
				groups = append(groups, ListingGroup{})
				current = 0
			}
			groups[current].Cards = append(groups[current].Cards, card)
		}
	})

	return groups, nil
}

// TagRef is a tag link found on an article page.
type TagRef struct {
	Name string
	URL  string
}

// Article is the parsed content of one article page.
type Article struct {
	Title        string
	CanonicalURL string
	Body         string
	Tags         []TagRef
	ImageURLs    []string
	VideoURLs    []string
}

// ParseArticle extracts the article content from a page. The canonical URL
// falls back to og:url, then to the fetched URL.
func ParseArticle(html []byte, fetchedURL string) (Article, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return Article{}, fmt.Errorf("parse article html: %w", err)
	}

	article := Article{}

	article.Title = strings.TrimSpace(doc.Find("h1.article-head__title").First().Text())
	if article.Title == "" {
		if og, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
			article.Title = strings.TrimSpace(og)
		}
	}

	if canonical, ok := doc.Find(`link[rel="canonical"]`).First().Attr("href"); ok {
		article.CanonicalURL = strings.TrimSpace(canonical)
	}
	if article.CanonicalURL == "" {
		if og, ok := doc.Find(`meta[property="og:url"]`).First().Attr("content"); ok {
			article.CanonicalURL = strings.TrimSpace(og)
		}
	}
	if article.CanonicalURL == "" {
		article.CanonicalURL = fetchedURL
	}

	paragraphs := make([]string, 0, 8)
	doc.Find(".article-content p").Each(func(_ int, s *goquery.Selection) {
		text := strings.Join(strings.Fields(s.Text()), " ")
		if text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	article.Body = strings.Join(paragraphs, "\n\n")

	doc.Find(".article-tags a").Each(func(_ int, s *goquery.Selection) {
		name := strings.TrimSpace(s.Text())
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if name == "" && href == "" {
			return
		}
		article.Tags = append(article.Tags, TagRef{Name: name, URL: href})
	})

	if image, ok := doc.Find(`meta[property="og:image"]`).First().Attr("content"); ok {
		if image = strings.TrimSpace(image); image != "" {
			article.ImageURLs = append(article.ImageURLs, image)
		}
	}
	doc.Find(".article-content img").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok {
			if src = strings.TrimSpace(src); src != "" && !contains(article.ImageURLs, src) {
				article.ImageURLs = append(article.ImageURLs, src)
			}
		}
	})
	doc.Find(".article-content iframe, .article-content video source").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok {
			if src = strings.TrimSpace(src); src != "" && !contains(article.VideoURLs, src) {
				article.VideoURLs = append(article.VideoURLs, src)
			}
		}
	})

	if article.Title == "" {
		return article, fmt.Errorf("article page has no title")
	}
	return article, nil
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
