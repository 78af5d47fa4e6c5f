// Package sync reconciles configured card sources with the database: new
// cards are inserted in box 1, cards that disappeared from their source are
// removed. Review state of unchanged cards is untouched.
package sync

import (
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mfreire/revisa/internal/cardid"
	"github.com/mfreire/revisa/internal/gitsource"
	"github.com/mfreire/revisa/internal/parser"
	"github.com/mfreire/revisa/internal/storage"
)

// IsGitURL reports whether a source path looks like a git repository rather
// than a local directory.
func IsGitURL(path string) bool {
	return strings.HasSuffix(path, ".git") ||
		strings.HasPrefix(path, "git@") ||
		strings.HasPrefix(path, "https://") ||
		strings.HasPrefix(path, "http://")
}

// RunAll iterates over all stored sources and reconciles each one. Git
// sources are cloned or pulled into reposDir first. Failures on one source
// are logged and do not stop the others.
func RunAll(db *storage.DB, reposDir string, now time.Time) error {
	sources, err := db.GetAllSources()
	if err != nil {
		return fmt.Errorf("getting sources: %w", err)
	}
	if len(sources) == 0 {
		slog.Info("no sources configured")
		return nil
	}

	if err := os.MkdirAll(reposDir, 0o755); err != nil {
		return fmt.Errorf("creating repos directory: %w", err)
	}

	for _, source := range sources {
		slog.Info("syncing source", "id", source.ID, "type", source.Type, "path", source.Path)

		scanPath := source.Path
		if source.Type == "git" {
			localPath, err := gitURLToLocalPath(reposDir, source.Path)
			if err != nil {
				slog.Error("cannot determine local path for git repo", "url", source.Path, "error", err)
				continue
			}
			if err := gitsource.Sync(source.Path, localPath); err != nil {
				slog.Error("git sync failed", "url", source.Path, "error", err)
				continue
			}
			scanPath = localPath
		}

		if err := reconcile(db, source, scanPath, now); err != nil {
			slog.Error("reconciliation failed", "path", source.Path, "error", err)
		}
	}
	return nil
}

// reconcile walks scanPath, parses every markdown file, inserts cards the
// database has not seen, and deletes cards the source no longer contains.
func reconcile(db *storage.DB, source storage.Source, scanPath string, now time.Time) error {
	var (
		parsed      int
		inserted    int
		parseErrors int
		found       = make(map[string]bool)
	)

	walkErr := filepath.WalkDir(scanPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}

		cards, parseErr := parser.ParseFile(path)
		if parseErr != nil {
			parseErrors++
			slog.Warn("parse failed", "file", path, "error", parseErr)
		}
		for _, card := range cards {
			card.ID = cardid.ID(card)
			parsed++
			found[card.ID] = true

			existing, err := db.FindCardByID(card.ID)
			if err != nil {
				return fmt.Errorf("db check for %s: %w", card.ID, err)
			}
			if existing == nil {
				slog.Info("new card", "id", card.ID, "deck", card.Deck)
				if err := db.InsertCard(card, source.ID, now); err != nil {
					return fmt.Errorf("db insert for %s: %w", card.ID, err)
				}
				inserted++
			}
		}
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("walking %s: %w", scanPath, walkErr)
	}

	dbCards, err := db.GetCardsBySourceID(source.ID)
	if err != nil {
		return fmt.Errorf("getting cards for source %d: %w", source.ID, err)
	}

	var orphaned int
	for _, dbCard := range dbCards {
		if !found[dbCard.ID] {
			slog.Info("orphaned card, deleting", "id", dbCard.ID)
			orphaned++
			if err := db.DeleteCardByID(dbCard.ID); err != nil {
				slog.Warn("failed to delete orphaned card", "id", dbCard.ID, "error", err)
			}
		}
	}

	if err := db.UpdateSourceLastScanned(source.ID, now); err != nil {
		slog.Warn("failed to update last scanned", "source_id", source.ID, "error", err)
	}

	slog.Info("reconciliation complete",
		"path", source.Path,
		"parsed_cards", parsed,
		"inserted", inserted,
		"orphaned_deleted", orphaned,
		"parse_errors", parseErrors,
	)
	return nil
}

// gitURLToLocalPath maps a git URL to a stable checkout path under baseDir.
func gitURLToLocalPath(baseDir, repoURL string) (string, error) {
	parsedURL, err := url.Parse(repoURL)
	if err == nil && (parsedURL.Scheme == "https" || parsedURL.Scheme == "http") {
		sanitized := strings.TrimSuffix(parsedURL.Path, ".git")
		return filepath.Join(baseDir, parsedURL.Host, sanitized), nil
	}

	// scp-like syntax: git@host:user/repo.git
	if strings.Contains(repoURL, "@") {
		parts := strings.SplitN(repoURL, ":", 2)
		if len(parts) == 2 {
			hostAndUser := strings.SplitN(parts[0], "@", 2)
			if len(hostAndUser) == 2 {
				repoPath := strings.TrimSuffix(parts[1], ".git")
				return filepath.Join(baseDir, hostAndUser[1], repoPath), nil
			}
		}
	}
	return "", fmt.Errorf("could not parse git URL: %s", repoURL)
}
