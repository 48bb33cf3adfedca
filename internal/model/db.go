package model

import "gorm.io/gorm"

// Migrate creates or updates every table of the resource store.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&DataObject{}, &DataObjectRemote{}); err != nil {
		return err
	}

	if err := db.AutoMigrate(&DataObjectValue{}, &ValueArrayItem{}); err != nil {
		return err
	}

	if err := db.AutoMigrate(&OAuthToken{}, &File{}); err != nil {
		return err
	}

	return nil
}
