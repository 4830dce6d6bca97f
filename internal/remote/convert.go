package remote

import "tandem/internal/models"

func SettingsFromDoc(doc *SettingsDoc) *models.ProgressionSettings {
	return &models.ProgressionSettings{
		CoupleID:      doc.CoupleID,
		ContentType:   models.ContentType(doc.ContentType),
		StartDate:     doc.StartDate,
		Timezone:      doc.Timezone,
		CurrentDay:    doc.CurrentDay,
		CreatedAt:     doc.CreatedAt,
		LastVisitDate: doc.LastVisitDate,
	}
}

func SettingsToDoc(s *models.ProgressionSettings) *SettingsDoc {
	return &SettingsDoc{
		CoupleID:      s.CoupleID,
		ContentType:   string(s.ContentType),
		StartDate:     s.StartDate,
		Timezone:      s.Timezone,
		CurrentDay:    s.CurrentDay,
		CreatedAt:     s.CreatedAt,
		LastVisitDate: s.LastVisitDate,
	}
}

func ResponseFromDoc(doc ResponseDoc) models.ResponseRecord {
	return models.ResponseRecord{
		ID:              doc.ID,
		UserID:          doc.UserID,
		DisplayName:     doc.DisplayName,
		Text:            doc.Text,
		RespondedAt:     doc.RespondedAt,
		Status:          models.ResponseStatus(doc.Status),
		IsReadByPartner: doc.IsReadByPartner,
	}
}

func ResponseToDoc(r models.ResponseRecord) ResponseDoc {
	return ResponseDoc{
		ID:              r.ID,
		UserID:          r.UserID,
		DisplayName:     r.DisplayName,
		Text:            r.Text,
		RespondedAt:     r.RespondedAt,
		Status:          string(r.Status),
		IsReadByPartner: r.IsReadByPartner,
	}
}

// ItemFromDoc builds the domain item. subResponses is the sub-resource
// collection; when non-empty it wins over the inline legacy map in full.
func ItemFromDoc(doc *ItemDoc, subResponses []ResponseDoc) *models.ContentItem {
	item := &models.ContentItem{
		ID:                doc.ID,
		CoupleID:          doc.CoupleID,
		ContentType:       models.ContentType(doc.ContentType),
		ContentKey:        doc.ContentKey,
		Day:               doc.Day,
		ScheduledDate:     doc.ScheduledDate,
		ScheduledDateTime: doc.ScheduledDateTime,
		Status:            models.ItemStatus(doc.Status),
		Timezone:          doc.Timezone,
		CreatedAt:         doc.CreatedAt,
		UpdatedAt:         doc.UpdatedAt,
	}
	for _, rd := range subResponses {
		item.Responses = append(item.Responses, ResponseFromDoc(rd))
	}
	if len(doc.Responses) > 0 {
		item.LegacyResponses = make(map[string]models.ResponseRecord, len(doc.Responses))
		for userID, rd := range doc.Responses {
			item.LegacyResponses[userID] = ResponseFromDoc(rd)
		}
	}
	return item
}

// ItemToDoc serializes the item header. The inline responses map is not
// written: once sub-resource writes succeed, writers stop feeding the legacy
// representation.
func ItemToDoc(item *models.ContentItem) *ItemDoc {
	return &ItemDoc{
		ID:                item.ID,
		CoupleID:          item.CoupleID,
		ContentType:       string(item.ContentType),
		ContentKey:        item.ContentKey,
		Day:               item.Day,
		ScheduledDate:     item.ScheduledDate,
		ScheduledDateTime: item.ScheduledDateTime,
		Status:            string(item.Status),
		Timezone:          item.Timezone,
		CreatedAt:         item.CreatedAt,
		UpdatedAt:         item.UpdatedAt,
	}
}
