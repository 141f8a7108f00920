package asset

import (
	"path/filepath"
	"strings"
)

// Category groups assets by content type so the collaborator layer can route
// archived files to the right destination.
type Category string

const (
	CategoryPDF     Category = "pdf"
	CategoryExcel   Category = "excel"
	CategoryWord    Category = "word"
	CategoryImage   Category = "image"
	CategoryArchive Category = "archive"
	CategoryOther   Category = "other"
)

var categoryByExtension = map[string]Category{
	".pdf":  CategoryPDF,
	".xls":  CategoryExcel,
	".xlsx": CategoryExcel,
	".csv":  CategoryExcel,
	".doc":  CategoryWord,
	".docx": CategoryWord,
	".rtf":  CategoryWord,
	".txt":  CategoryWord,
	".jpg":  CategoryImage,
	".jpeg": CategoryImage,
	".png":  CategoryImage,
	".gif":  CategoryImage,
	".webp": CategoryImage,
	".zip":  CategoryArchive,
	".rar":  CategoryArchive,
	".7z":   CategoryArchive,
	".tar":  CategoryArchive,
	".gz":   CategoryArchive,
}

// DetectCategory derives a category from the declared file name extension.
func DetectCategory(declaredName string) Category {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(declaredName)))
	if category, ok := categoryByExtension[ext]; ok {
		return category
	}
	return CategoryOther
}
