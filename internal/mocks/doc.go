// Package mocks provides shared test doubles for the store and auth
// interfaces.
//
// Store mocks use testify/mock so tests declare expectations with On and
// verify them with AssertExpectations. Their WithTx methods return the mock
// itself unless an expectation says otherwise, so code running inside
// store.RunInTransaction talks to the same mock:
//
//	tasks := new(mocks.MockTaskStore)
//	tasks.On("ExistsByID", mock.Anything, taskID).Return(true, nil)
//
// MockJWTService and MockPasswordHasher use function fields with fixed
// defaults, which keeps simple handler tests short.
//
// Mocks of the service interfaces live next to the handlers that use them,
// since the service package's own tests import this package.
package mocks
