package migration

import (
	"errors"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockMigrator - мок для интерфейса Migrator
type MockMigrator struct {
	mock.Mock
}

func (m *MockMigrator) Up() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockMigrator) Close() (error, error) {
	args := m.Called()
	return args.Error(0), args.Error(1)
}

func TestMigration_Up(t *testing.T) {
	tests := []struct {
		name      string
		upErr     error
		srcErr    error
		dbErr     error
		wantErr   bool
		errSubstr string
	}{
		{name: "success"},
		// ErrNoChange не должна считаться ошибкой в методе Up()
		{name: "no change", upErr: migrate.ErrNoChange},
		{name: "up failure", upErr: errors.New("dirty database"), wantErr: true, errSubstr: "dirty database"},
		{name: "close source error", srcErr: errors.New("source closed"), wantErr: true, errSubstr: "source closed"},
		{name: "up and close errors", upErr: errors.New("boom"), dbErr: errors.New("db gone"), wantErr: true, errSubstr: "db gone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockM := new(MockMigrator)
			mockM.On("Up").Return(tt.upErr)
			mockM.On("Close").Return(tt.srcErr, tt.dbErr)

			var gotSource, gotDB string
			engine := func(source, db string) (Migrator, error) {
				gotSource, gotDB = source, db
				return mockM, nil
			}

			err := NewMigration("./migrations", "postgres://localhost/chronicles", engine).Up()

			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errSubstr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, "file://./migrations", gotSource)
			assert.Equal(t, "postgres://localhost/chronicles", gotDB)
			mockM.AssertExpectations(t)
		})
	}
}

func TestMigration_Up_EngineError(t *testing.T) {
	// Ошибка на этапе создания мигратора (например, неверный драйвер)
	engine := func(source, db string) (Migrator, error) {
		return nil, errors.New("engine crash")
	}

	err := NewMigration("", "", engine).Up()

	assert.Error(t, err)
	assert.Equal(t, "engine crash", err.Error())
}
