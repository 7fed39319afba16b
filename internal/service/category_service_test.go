package service

import (
	"errors"
	"testing"

	"github.com/kbase/internal/db"
)

func TestCategoryService_CreateAppliesDefaults(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewCategoryService(gdb)

	category, err := svc.Create(CategoryInput{Name: "Network Issues"}, 1)
	if err != nil {
		t.Fatalf("create category: %v", err)
	}

	if category.Slug != "network-issues" {
		t.Fatalf("expected derived slug, got %q", category.Slug)
	}
	if category.Icon != "folder" || category.Color != "#3498db" {
		t.Fatalf("expected defaults, got %q/%q", category.Icon, category.Color)
	}
	if !category.IsActive {
		t.Fatal("expected new category active")
	}
}

func TestCategoryService_CreateDuplicateSlug(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewCategoryService(gdb)

	if _, err := svc.Create(CategoryInput{Name: "Printing"}, 1); err != nil {
		t.Fatalf("create first: %v", err)
	}
	if _, err := svc.Create(CategoryInput{Name: "PRINTING!"}, 1); !errors.Is(err, ErrCategoryConflict) {
		t.Fatalf("expected ErrCategoryConflict, got %v", err)
	}
}

func TestCategoryService_ListCountsPublishedArticles(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewCategoryService(gdb)
	articles := NewArticleService(gdb)
	author := seedUser(t, gdb, "cat-lister")

	category, err := svc.Create(CategoryInput{Name: "Hardware"}, author.ID)
	if err != nil {
		t.Fatalf("create category: %v", err)
	}

	if _, err := articles.Create(ArticleInput{
		Title:       "Published in Hardware",
		Status:      db.StatusPublished,
		CategoryIDs: []uint{category.ID},
	}, author.ID); err != nil {
		t.Fatalf("create published article: %v", err)
	}
	if _, err := articles.Create(ArticleInput{
		Title:       "Draft in Hardware",
		CategoryIDs: []uint{category.ID},
	}, author.ID); err != nil {
		t.Fatalf("create draft article: %v", err)
	}

	listed, err := svc.List(false)
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected 1 category, got %d", len(listed))
	}
	if listed[0].ArticleCount != 1 {
		t.Fatalf("expected only the published article counted, got %d", listed[0].ArticleCount)
	}
}

func TestCategoryService_ParentOnlyFilter(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewCategoryService(gdb)

	parent, err := svc.Create(CategoryInput{Name: "Software"}, 1)
	if err != nil {
		t.Fatalf("create parent: %v", err)
	}
	if _, err := svc.Create(CategoryInput{Name: "Browsers", ParentID: &parent.ID}, 1); err != nil {
		t.Fatalf("create child: %v", err)
	}

	all, err := svc.List(false)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(all))
	}

	parents, err := svc.List(true)
	if err != nil {
		t.Fatalf("list parents: %v", err)
	}
	if len(parents) != 1 || parents[0].ID != parent.ID {
		t.Fatalf("expected only the parent category, got %+v", parents)
	}
}

func TestCategoryService_DeactivateHidesCategory(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewCategoryService(gdb)

	category, err := svc.Create(CategoryInput{Name: "Legacy"}, 1)
	if err != nil {
		t.Fatalf("create category: %v", err)
	}

	if err := svc.Deactivate(category.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	found, err := svc.FindBySlug("legacy")
	if err != nil {
		t.Fatalf("find by slug: %v", err)
	}
	if found != nil {
		t.Fatal("expected deactivated category hidden")
	}

	if err := svc.Deactivate(category.ID); !errors.Is(err, ErrCategoryNotFound) {
		t.Fatalf("expected ErrCategoryNotFound on second deactivate, got %v", err)
	}
}

func TestCategoryService_DeactivatedCategoryExcludedFromAggregate(t *testing.T) {
	gdb := setupServiceTestDB(t)
	categories := NewCategoryService(gdb)
	articles := NewArticleService(gdb)
	author := seedUser(t, gdb, "agg-checker")

	keep, err := categories.Create(CategoryInput{Name: "Keep"}, author.ID)
	if err != nil {
		t.Fatalf("create keep: %v", err)
	}
	drop, err := categories.Create(CategoryInput{Name: "Drop"}, author.ID)
	if err != nil {
		t.Fatalf("create drop: %v", err)
	}

	article, err := articles.Create(ArticleInput{
		Title:       "Two Categories",
		CategoryIDs: []uint{keep.ID, drop.ID},
	}, author.ID)
	if err != nil {
		t.Fatalf("create article: %v", err)
	}

	if err := categories.Deactivate(drop.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	fetched, err := articles.FindByID(article.ID)
	if err != nil {
		t.Fatalf("find article: %v", err)
	}
	if len(fetched.Categories) != 1 || fetched.Categories[0].ID != keep.ID {
		t.Fatalf("expected only active categories in aggregate, got %+v", fetched.Categories)
	}
}
