package store

import "go.uber.org/multierr"

// CloseAll closes the room store and archive, combining their errors.
func CloseAll(rooms RoomStore, archive Archive) error {
	var err error
	if rooms != nil {
		err = multierr.Append(err, rooms.Close())
	}
	if archive != nil {
		err = multierr.Append(err, archive.Close())
	}
	return err
}
