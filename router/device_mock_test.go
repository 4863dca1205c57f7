/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Hand-written mocks in MockGen's output shape.
// Source: router/device.go

package router

import (
	reflect "reflect"

	gomock "go.uber.org/mock/gomock"

	"github.com/kurkpitaine/veloce-sub002/geonet"
	"github.com/kurkpitaine/veloce-sub002/tai"
)

// MockDevice is a mock of Device interface.
type MockDevice struct {
	ctrl     *gomock.Controller
	recorder *MockDeviceMockRecorder
}

// MockDeviceMockRecorder is the mock recorder for MockDevice.
type MockDeviceMockRecorder struct {
	mock *MockDevice
}

// NewMockDevice creates a new mock instance.
func NewMockDevice(ctrl *gomock.Controller) *MockDevice {
	mock := &MockDevice{ctrl: ctrl}
	mock.recorder = &MockDeviceMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockDevice) EXPECT() *MockDeviceMockRecorder {
	return m.recorder
}

// Capabilities mocks base method.
func (m *MockDevice) Capabilities() Capabilities {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Capabilities")
	ret0, _ := ret[0].(Capabilities)
	return ret0
}

// Capabilities indicates an expected call of Capabilities.
func (mr *MockDeviceMockRecorder) Capabilities() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Capabilities", reflect.TypeOf((*MockDevice)(nil).Capabilities))
}

// Receive mocks base method.
func (m *MockDevice) Receive(now tai.Time) (RxToken, TxToken, bool) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Receive", now)
	ret0, _ := ret[0].(RxToken)
	ret1, _ := ret[1].(TxToken)
	ret2, _ := ret[2].(bool)
	return ret0, ret1, ret2
}

// Receive indicates an expected call of Receive.
func (mr *MockDeviceMockRecorder) Receive(now interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Receive", reflect.TypeOf((*MockDevice)(nil).Receive), now)
}

// Transmit mocks base method.
func (m *MockDevice) Transmit(now tai.Time) (TxToken, bool) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Transmit", now)
	ret0, _ := ret[0].(TxToken)
	ret1, _ := ret[1].(bool)
	return ret0, ret1
}

// Transmit indicates an expected call of Transmit.
func (mr *MockDeviceMockRecorder) Transmit(now interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Transmit", reflect.TypeOf((*MockDevice)(nil).Transmit), now)
}

// ChannelBusyRatio mocks base method.
func (m *MockDevice) ChannelBusyRatio() float64 {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ChannelBusyRatio")
	ret0, _ := ret[0].(float64)
	return ret0
}

// ChannelBusyRatio indicates an expected call of ChannelBusyRatio.
func (mr *MockDeviceMockRecorder) ChannelBusyRatio() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ChannelBusyRatio", reflect.TypeOf((*MockDevice)(nil).ChannelBusyRatio))
}

// SetFilterAddr mocks base method.
func (m *MockDevice) SetFilterAddr(mac geonet.MAC) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "SetFilterAddr", mac)
	ret0, _ := ret[0].(error)
	return ret0
}

// SetFilterAddr indicates an expected call of SetFilterAddr.
func (mr *MockDeviceMockRecorder) SetFilterAddr(mac interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "SetFilterAddr", reflect.TypeOf((*MockDevice)(nil).SetFilterAddr), mac)
}

// MockTxToken is a mock of TxToken interface.
type MockTxToken struct {
	ctrl     *gomock.Controller
	recorder *MockTxTokenMockRecorder
}

// MockTxTokenMockRecorder is the mock recorder for MockTxToken.
type MockTxTokenMockRecorder struct {
	mock *MockTxToken
}

// NewMockTxToken creates a new mock instance.
func NewMockTxToken(ctrl *gomock.Controller) *MockTxToken {
	mock := &MockTxToken{ctrl: ctrl}
	mock.recorder = &MockTxTokenMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockTxToken) EXPECT() *MockTxTokenMockRecorder {
	return m.recorder
}

// Consume mocks base method.
func (m *MockTxToken) Consume(length int, f func([]byte) error) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Consume", length, f)
	ret0, _ := ret[0].(error)
	return ret0
}

// Consume indicates an expected call of Consume.
func (mr *MockTxTokenMockRecorder) Consume(length, f interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Consume", reflect.TypeOf((*MockTxToken)(nil).Consume), length, f)
}
