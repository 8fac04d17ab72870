package controllers

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/societyhub/society_backend/internal/apperr"
	"github.com/societyhub/society_backend/internal/authz"
	"github.com/societyhub/society_backend/internal/logging"
	"github.com/societyhub/society_backend/internal/models"
	"github.com/societyhub/society_backend/internal/response"
	"github.com/societyhub/society_backend/internal/utils"
)

type FlatController struct {
	DB  *gorm.DB
	Log logging.Logger
}

type createFlatRequest struct {
	BuildingID string         `json:"buildingId"`
	FlatNumber FlexibleString `json:"flatNumber"`
	AreaSqFt   int            `json:"areaSqFt"`
	Bedrooms   int            `json:"bedrooms"`
	OwnerID    *string        `json:"ownerId"`
	ResidentID *string        `json:"residentId"`
}

type assignFlatRequest struct {
	OwnerID    *string `json:"ownerId"`
	ResidentID *string `json:"residentId"`
}

type flatImportError struct {
	Row        int    `json:"row"`
	FlatNumber string `json:"flatNumber,omitempty"`
	Error      string `json:"error"`
}

// maxImportBytes caps a CSV upload; larger files are refused whole.
const maxImportBytes = 10 << 20

var flatSorts = map[string]string{
	"flat_number": "flats.flat_number",
	"created_at":  "flats.created_at",
}

// PublicList lists the flats of ?buildingId= without occupant details.
func (fc *FlatController) PublicList(c *gin.Context) {
	buildingID := strings.TrimSpace(c.Query("buildingId"))
	if !utils.ValidID(buildingID) {
		response.Error(c, fc.Log, apperr.Validation("buildingId is required"))
		return
	}
	var out []struct {
		ID         string `json:"id"`
		FlatNumber string `json:"flatNumber"`
		IsOccupied bool   `json:"isOccupied"`
	}
	if err := fc.DB.WithContext(c.Request.Context()).Model(&models.Flat{}).
		Select("id", "flat_number", "is_occupied").
		Where("building_id = ?", buildingID).Order("flat_number ASC").Find(&out).Error; err != nil {
		response.Error(c, fc.Log, apperr.FromDB(err, ""))
		return
	}
	response.OK(c, gin.H{"data": out})
}

// loadBuilding fetches a building the caller manages. Buildings of other
// societies are reported as missing.
func loadBuilding(db *gorm.DB, caller *models.Person, id string) (*models.Building, error) {
	if !utils.ValidID(id) {
		return nil, apperr.Validation("invalid buildingId")
	}
	var b models.Building
	if err := db.First(&b, "id = ?", id).Error; err != nil {
		return nil, apperr.FromDB(err, "building not found")
	}
	if !authz.InSociety(caller, b.SocietyID) {
		return nil, apperr.NotFound("building not found")
	}
	return &b, nil
}

func loadPerson(db *gorm.DB, id string) (*models.Person, error) {
	if !utils.ValidID(id) {
		return nil, apperr.Validation("invalid person id")
	}
	var p models.Person
	if err := db.First(&p, "id = ?", id).Error; err != nil {
		return nil, apperr.FromDB(err, "person not found")
	}
	return &p, nil
}

// attachToFlat records person as the owner or the occupant of flat and
// moves them into the flat's society. Visitors and plain members are
// promoted to HOUSE_OWNER or RESIDENT; other roles are kept.
func attachToFlat(tx *gorm.DB, flat *models.Flat, building *models.Building, person *models.Person, asOwner bool) error {
	if person.Society() != "" && person.Society() != building.SocietyID {
		return apperr.Validation("person belongs to another society")
	}
	role := person.Role
	flatUpdates := map[string]any{}
	if asOwner {
		flatUpdates["owner_id"] = person.ID
		if role.In(models.RoleVisitor, models.RoleSocietyMember) {
			role = models.RoleHouseOwner
		}
	} else {
		flatUpdates["resident_id"] = person.ID
		flatUpdates["is_occupied"] = true
		if role.In(models.RoleVisitor, models.RoleSocietyMember) {
			role = models.RoleResident
		}
	}
	if err := tx.Model(&models.Flat{}).Where("id = ?", flat.ID).Updates(flatUpdates).Error; err != nil {
		return apperr.FromDB(err, "flat not found")
	}
	if err := tx.Model(&models.Person{}).Where("id = ?", person.ID).Updates(map[string]any{
		"role":        role,
		"society_id":  building.SocietyID,
		"building_id": building.ID,
		"flat_id":     flat.ID,
	}).Error; err != nil {
		return apperr.FromDB(err, "person not found")
	}

	id := person.ID
	if asOwner {
		flat.OwnerID = &id
	} else {
		flat.ResidentID = &id
		flat.IsOccupied = true
	}
	person.Role = role
	person.SocietyID = &building.SocietyID
	person.BuildingID = &building.ID
	person.FlatID = &flat.ID
	return nil
}

// assignPeople attaches the optional owner and occupant ids to flat.
func assignPeople(tx *gorm.DB, flat *models.Flat, building *models.Building, ownerID, residentID *string) error {
	if id := optionalString(ownerID); id != nil {
		owner, err := loadPerson(tx, *id)
		if err != nil {
			return err
		}
		if err := attachToFlat(tx, flat, building, owner, true); err != nil {
			return err
		}
	}
	if id := optionalString(residentID); id != nil {
		occupant, err := loadPerson(tx, *id)
		if err != nil {
			return err
		}
		if err := attachToFlat(tx, flat, building, occupant, false); err != nil {
			return err
		}
	}
	return nil
}

func (fc *FlatController) Create(c *gin.Context) {
	var req createFlatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, fc.Log, err)
		return
	}
	number := utils.NormalizeCode(req.FlatNumber.String())
	if number == "" {
		response.Error(c, fc.Log, apperr.Validation("flatNumber is required"))
		return
	}
	if req.AreaSqFt < 0 || req.Bedrooms < 0 {
		response.Error(c, fc.Log, apperr.Validation("areaSqFt and bedrooms must not be negative"))
		return
	}
	caller := currentPerson(c)
	var flat models.Flat
	err := fc.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		building, err := loadBuilding(tx, caller, strings.TrimSpace(req.BuildingID))
		if err != nil {
			return err
		}
		flat = models.Flat{BuildingID: building.ID, FlatNumber: number, AreaSqFt: req.AreaSqFt, Bedrooms: req.Bedrooms}
		if err := tx.Create(&flat).Error; err != nil {
			return apperr.FromDB(err, "")
		}
		return assignPeople(tx, &flat, building, req.OwnerID, req.ResidentID)
	})
	if err != nil {
		response.Error(c, fc.Log, err)
		return
	}
	response.Created(c, flat)
}

// Assign sets the owner and/or occupant of a flat.
func (fc *FlatController) Assign(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, fc.Log, err)
		return
	}
	var req assignFlatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, fc.Log, err)
		return
	}
	if optionalString(req.OwnerID) == nil && optionalString(req.ResidentID) == nil {
		response.Error(c, fc.Log, apperr.Validation("ownerId or residentId is required"))
		return
	}
	caller := currentPerson(c)
	var flat models.Flat
	err = fc.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Building").First(&flat, "id = ?", id).Error; err != nil {
			return apperr.FromDB(err, "flat not found")
		}
		if flat.Building == nil || !authz.InSociety(caller, flat.Building.SocietyID) {
			return apperr.NotFound("flat not found")
		}
		return assignPeople(tx, &flat, flat.Building, req.OwnerID, req.ResidentID)
	})
	if err != nil {
		response.Error(c, fc.Log, err)
		return
	}
	fc.Log.Info(c.Request.Context(), "flat assigned", "flat_id", flat.ID, "person_id", caller.ID)
	response.OK(c, flat)
}

func (fc *FlatController) List(c *gin.Context) {
	scope, err := listSociety(c)
	if err != nil {
		response.Error(c, fc.Log, err)
		return
	}
	p := listParams(c, flatSorts, "flats.flat_number")
	q := fc.DB.WithContext(c.Request.Context()).Model(&models.Flat{}).
		Joins("JOIN buildings ON buildings.id = flats.building_id")
	if scope != "" {
		q = q.Where("buildings.society_id = ?", scope)
	}
	buildingID, err := queryID(c, "buildingId")
	if err != nil {
		response.Error(c, fc.Log, err)
		return
	}
	if buildingID != "" {
		q = q.Where("flats.building_id = ?", buildingID)
	}
	if v := c.Query("occupied"); v != "" {
		q = q.Where("flats.is_occupied = ?", queryBool(c, "occupied"))
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		response.Error(c, fc.Log, apperr.FromDB(err, ""))
		return
	}
	var out []models.Flat
	if err := p.Apply(q.Preload("Building")).Select("flats.*").Find(&out).Error; err != nil {
		response.Error(c, fc.Log, apperr.FromDB(err, ""))
		return
	}
	response.List(c, out, p.Meta(total))
}

// Import bulk-creates flats from a CSV upload. Expected header columns
// (case-insensitive): building, flat_number, bedrooms (optional),
// area_sq_ft (optional). Missing buildings are created.
func (fc *FlatController) Import(c *gin.Context) {
	caller := currentPerson(c)
	societyID, err := targetSociety(caller, c.PostForm("societyId"))
	if err != nil {
		response.Error(c, fc.Log, err)
		return
	}
	file, fileHeader, err := c.Request.FormFile("file")
	if err != nil {
		response.Error(c, fc.Log, apperr.Validation("file is required"))
		return
	}
	defer file.Close()
	if !strings.HasSuffix(strings.ToLower(strings.TrimSpace(fileHeader.Filename)), ".csv") {
		response.Error(c, fc.Log, apperr.Validation("only .csv files are allowed"))
		return
	}
	data, err := io.ReadAll(io.LimitReader(file, maxImportBytes+1))
	if err != nil {
		response.Error(c, fc.Log, apperr.Validation("failed to read file"))
		return
	}
	if len(data) > maxImportBytes {
		response.Error(c, fc.Log, apperr.Validation("file exceeds 10 MiB"))
		return
	}
	if len(bytes.TrimSpace(data)) == 0 {
		response.Error(c, fc.Log, apperr.Validation("file is empty"))
		return
	}

	db := fc.DB.WithContext(c.Request.Context())
	var society models.Society
	if err := db.Select("id").First(&society, "id = ?", societyID).Error; err != nil {
		response.Error(c, fc.Log, apperr.FromDB(err, "society not found"))
		return
	}

	reader, err := newCSVReader(data)
	if err != nil {
		response.Error(c, fc.Log, err)
		return
	}
	header, err := reader.Read()
	if err != nil {
		response.Error(c, fc.Log, apperr.Validation("failed to read header"))
		return
	}
	headerIdx := make(map[string]int, len(header))
	for idx, col := range header {
		key := strings.ToLower(strings.Trim(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")), "\"'"))
		if key != "" {
			headerIdx[key] = idx
		}
	}
	for _, key := range []string{"building", "flat_number"} {
		if _, ok := headerIdx[key]; !ok {
			response.Error(c, fc.Log, apperr.Validation("missing header column: "+key))
			return
		}
	}
	getVal := func(record []string, key string) string {
		idx, ok := headerIdx[key]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}
	getInt := func(record []string, key string) (int, error) {
		v := getVal(record, key)
		if v == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid %s", key)
		}
		return n, nil
	}

	var (
		totalRows   int
		createdRows int
		failures    []flatImportError
	)
	buildings := make(map[string]models.Building)
	rowNum := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			failures = append(failures, flatImportError{Row: rowNum, Error: fmt.Sprintf("failed to read row: %v", err)})
			continue
		}
		totalRows++

		buildingName := utils.NormalizeName(getVal(row, "building"))
		number := utils.NormalizeCode(getVal(row, "flat_number"))
		if buildingName == "" || number == "" {
			failures = append(failures, flatImportError{Row: rowNum, FlatNumber: number, Error: "building and flat_number are required"})
			continue
		}
		bedrooms, err := getInt(row, "bedrooms")
		if err != nil {
			failures = append(failures, flatImportError{Row: rowNum, FlatNumber: number, Error: err.Error()})
			continue
		}
		area, err := getInt(row, "area_sq_ft")
		if err != nil {
			failures = append(failures, flatImportError{Row: rowNum, FlatNumber: number, Error: err.Error()})
			continue
		}

		building, ok := buildings[buildingName]
		if !ok {
			building = models.Building{SocietyID: societyID, Name: buildingName}
			if err := db.Where("society_id = ? AND name = ?", societyID, buildingName).FirstOrCreate(&building).Error; err != nil {
				failures = append(failures, flatImportError{Row: rowNum, FlatNumber: number, Error: fmt.Sprintf("failed to resolve building: %v", err)})
				continue
			}
			buildings[buildingName] = building
		}

		flat := models.Flat{BuildingID: building.ID, FlatNumber: number, Bedrooms: bedrooms, AreaSqFt: area}
		if err := db.Create(&flat).Error; err != nil {
			msg := fmt.Sprintf("failed to insert flat: %v", err)
			if apperr.IsUniqueViolation(err) {
				msg = "flat already exists"
			}
			failures = append(failures, flatImportError{Row: rowNum, FlatNumber: number, Error: msg})
			continue
		}
		createdRows++
	}

	fc.Log.Info(c.Request.Context(), "flats imported", "society_id", societyID, "inserted", createdRows, "failed", len(failures))
	response.OK(c, gin.H{
		"summary": gin.H{
			"totalRows": totalRows,
			"inserted":  createdRows,
			"failed":    len(failures),
		},
		"errors": failures,
	})
}

// newCSVReader normalises line endings and picks ';' as the delimiter when
// the header uses it instead of ','.
func newCSVReader(data []byte) (*csv.Reader, error) {
	data = bytes.ReplaceAll(data, []byte{'\r', '\n'}, []byte{'\n'})
	data = bytes.ReplaceAll(data, []byte{'\r'}, []byte{'\n'})
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	if len(data) == 0 {
		return nil, apperr.Validation("file is empty")
	}

	firstLine := data
	if end := bytes.IndexByte(data, '\n'); end >= 0 {
		firstLine = data[:end]
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1
	if bytes.Contains(firstLine, []byte{';'}) && !bytes.Contains(firstLine, []byte{','}) {
		r.Comma = ';'
	}
	return r, nil
}
