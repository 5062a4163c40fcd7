package storage

type IService interface {
	// StoreFile durably writes data to path. Readers never see a partial file.
	StoreFile(path string, data []byte) error
	RemoveFile(path string) error
}
