package watch

// IService delivers paths of newly created frame files in the watched folder.
type IService interface {
	Subscribe() (<-chan string, error)
	Unsubscribe() error
}
