package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"apitester/internal/model"
)

// CreateCollection creates a collection, or returns the existing one with
// the same name
func (s *SessionStore) CreateCollection(name, description string) (*model.Collection, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("collection name is required")
	}

	now := time.Now()
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO collections (id, name, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), name, description, now.UnixNano(), now.UnixNano())
	if err != nil {
		return nil, err
	}

	return s.GetCollection(name)
}

// DeleteCollection deletes a collection with its folders and requests
func (s *SessionStore) DeleteCollection(ref string) error {
	id, err := s.resolveCollection(s.db, ref)
	if err != nil {
		return err
	}
	_, err = s.db.Exec("DELETE FROM collections WHERE id = ?", id)
	return err
}

// LoadCollections returns every collection with its full tree, by name
func (s *SessionStore) LoadCollections() ([]model.Collection, error) {
	rows, err := s.db.Query("SELECT id FROM collections ORDER BY name")
	if err != nil {
		return nil, err
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	collections := make([]model.Collection, 0, len(ids))
	for _, id := range ids {
		col, err := s.GetCollection(id)
		if err != nil {
			return nil, err
		}
		collections = append(collections, *col)
	}
	return collections, nil
}

// GetCollection loads a collection by ID or name, with its folder tree
func (s *SessionStore) GetCollection(ref string) (*model.Collection, error) {
	id, err := s.resolveCollection(s.db, ref)
	if err != nil {
		return nil, err
	}

	col := &model.Collection{ID: id}
	var created, updated int64
	err = s.db.QueryRow(
		"SELECT name, description, created_at, updated_at FROM collections WHERE id = ?", id,
	).Scan(&col.Name, &col.Description, &created, &updated)
	if err != nil {
		return nil, err
	}
	col.CreatedAt = time.Unix(0, created)
	col.UpdatedAt = time.Unix(0, updated)

	type folderRow struct {
		id, name, description string
	}
	children := make(map[string][]folderRow)

	folderRows, err := s.db.Query(`
		SELECT id, parent_id, name, description
		FROM folders
		WHERE collection_id = ?
		ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	for folderRows.Next() {
		var row folderRow
		var parent sql.NullString
		if err := folderRows.Scan(&row.id, &parent, &row.name, &row.description); err != nil {
			folderRows.Close()
			return nil, err
		}
		children[parent.String] = append(children[parent.String], row)
	}
	folderRows.Close()
	if err := folderRows.Err(); err != nil {
		return nil, err
	}

	requests := make(map[string][]model.Request)
	reqRows, err := s.db.Query(`
		SELECT folder_id, request
		FROM saved_requests
		WHERE collection_id = ?
		ORDER BY position, seq`, id)
	if err != nil {
		return nil, err
	}
	for reqRows.Next() {
		var folder sql.NullString
		var data string
		if err := reqRows.Scan(&folder, &data); err != nil {
			reqRows.Close()
			return nil, err
		}
		var req model.Request
		if err := json.Unmarshal([]byte(data), &req); err != nil {
			reqRows.Close()
			return nil, err
		}
		requests[folder.String] = append(requests[folder.String], req)
	}
	reqRows.Close()
	if err := reqRows.Err(); err != nil {
		return nil, err
	}

	var build func(parent string) []model.Folder
	build = func(parent string) []model.Folder {
		folders := []model.Folder{}
		for _, row := range children[parent] {
			folders = append(folders, model.Folder{
				ID:          row.id,
				Name:        row.name,
				Description: row.description,
				Requests:    orEmpty(requests[row.id]),
				Folders:     build(row.id),
			})
		}
		return folders
	}

	col.Requests = orEmpty(requests[""])
	col.Folders = build("")
	return col, nil
}

// CreateFolder makes sure every folder along a slash-separated path exists
func (s *SessionStore) CreateFolder(collectionRef, path string) (*model.Folder, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	colID, err := s.resolveCollection(tx, collectionRef)
	if err != nil {
		return nil, err
	}

	folderID, name, err := ensureFolderPath(tx, colID, path)
	if err != nil {
		return nil, err
	}
	if folderID == "" {
		return nil, errors.New("folder path is required")
	}

	if err := touchCollection(tx, colID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &model.Folder{ID: folderID, Name: name, Requests: []model.Request{}, Folders: []model.Folder{}}, nil
}

// AddRequest appends a request to a collection, inside folderPath when set.
// Missing folders are created.
func (s *SessionStore) AddRequest(collectionRef, folderPath string, req model.Request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	colID, err := s.resolveCollection(tx, collectionRef)
	if err != nil {
		return err
	}

	folderID, _, err := ensureFolderPath(tx, colID, folderPath)
	if err != nil {
		return err
	}

	if err := insertRequest(tx, colID, folderID, string(data)); err != nil {
		return err
	}

	if err := touchCollection(tx, colID); err != nil {
		return err
	}
	return tx.Commit()
}

// ImportCollection stores a whole collection tree under fresh IDs so it
// cannot clash with anything already in the session
func (s *SessionStore) ImportCollection(col *model.Collection) (*model.Collection, error) {
	name := strings.TrimSpace(col.Name)
	if name == "" {
		return nil, errors.New("collection name is required")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRow("SELECT COUNT(*) FROM collections WHERE name = ?", name).Scan(&exists); err != nil {
		return nil, err
	}
	if exists > 0 {
		return nil, fmt.Errorf("collection %q already exists", name)
	}

	now := time.Now()
	colID := uuid.NewString()
	_, err = tx.Exec(`
		INSERT INTO collections (id, name, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		colID, name, col.Description, now.UnixNano(), now.UnixNano())
	if err != nil {
		return nil, err
	}

	if err := importRequests(tx, colID, "", col.Requests); err != nil {
		return nil, err
	}
	if err := importFolders(tx, colID, "", col.Folders); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.GetCollection(colID)
}

func importFolders(tx *sql.Tx, colID, parentID string, folders []model.Folder) error {
	for i, f := range folders {
		id := uuid.NewString()
		_, err := tx.Exec(`
			INSERT INTO folders (id, collection_id, parent_id, name, description, position)
			VALUES (?, ?, ?, ?, ?, ?)`,
			id, colID, nullable(parentID), f.Name, f.Description, i)
		if err != nil {
			return err
		}
		if err := importRequests(tx, colID, id, f.Requests); err != nil {
			return err
		}
		if err := importFolders(tx, colID, id, f.Folders); err != nil {
			return err
		}
	}
	return nil
}

func importRequests(tx *sql.Tx, colID, folderID string, requests []model.Request) error {
	for _, req := range requests {
		req.ID = uuid.NewString()
		data, err := json.Marshal(req)
		if err != nil {
			return err
		}
		if err := insertRequest(tx, colID, folderID, string(data)); err != nil {
			return err
		}
	}
	return nil
}

type queryer interface {
	QueryRow(query string, args ...interface{}) *sql.Row
}

// resolveCollection finds a collection ID by ID or name
func (s *SessionStore) resolveCollection(q queryer, ref string) (string, error) {
	var id string
	err := q.QueryRow("SELECT id FROM collections WHERE id = ? OR name = ? LIMIT 1", ref, ref).Scan(&id)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("collection %q: %w", ref, ErrNotFound)
	}
	return id, err
}

// ensureFolderPath walks path from the collection root, creating folders as
// needed, and returns the ID and name of the last one ("" for the root)
func ensureFolderPath(tx *sql.Tx, colID, path string) (string, string, error) {
	parentID, name := "", ""
	for _, segment := range strings.Split(path, "/") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}

		var id string
		err := tx.QueryRow(`
			SELECT id FROM folders
			WHERE collection_id = ? AND name = ? AND IFNULL(parent_id, '') = ?`,
			colID, segment, parentID).Scan(&id)
		if err == sql.ErrNoRows {
			var position int
			if err := tx.QueryRow(
				"SELECT COUNT(*) FROM folders WHERE collection_id = ? AND IFNULL(parent_id, '') = ?",
				colID, parentID).Scan(&position); err != nil {
				return "", "", err
			}
			id = uuid.NewString()
			_, err = tx.Exec(`
				INSERT INTO folders (id, collection_id, parent_id, name, position)
				VALUES (?, ?, ?, ?, ?)`,
				id, colID, nullable(parentID), segment, position)
		}
		if err != nil {
			return "", "", err
		}

		parentID, name = id, segment
	}
	return parentID, name, nil
}

func insertRequest(tx *sql.Tx, colID, folderID, data string) error {
	var position int
	err := tx.QueryRow(
		"SELECT COUNT(*) FROM saved_requests WHERE collection_id = ? AND IFNULL(folder_id, '') = ?",
		colID, folderID).Scan(&position)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		INSERT INTO saved_requests (collection_id, folder_id, position, request)
		VALUES (?, ?, ?, ?)`,
		colID, nullable(folderID), position, data)
	return err
}

func touchCollection(tx *sql.Tx, colID string) error {
	_, err := tx.Exec("UPDATE collections SET updated_at = ? WHERE id = ?", time.Now().UnixNano(), colID)
	return err
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func orEmpty(requests []model.Request) []model.Request {
	if requests == nil {
		return []model.Request{}
	}
	return requests
}
