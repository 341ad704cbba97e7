package transport

import (
	"babble/domain"
	"babble/errors"
	"babble/mocks"
	"babble/protocol"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestDeliver_Single(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	ep := mocks.NewMockEndpoint(ctrl)

	ep.EXPECT().Send(protocol.EncodeMessage("alice[0]: rdv_ack")).Return(nil)

	req.NoError(Deliver(ep, domain.Single("alice[0]: rdv_ack"), 20))
}

func TestDeliver_Set_Sends_True_Count_And_Latest_Items(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	ep := mocks.NewMockEndpoint(ctrl)

	// Given more items than the transport sends
	items := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		items = append(items, fmt.Sprintf("item-%d", i))
	}

	// Then the count frame carries 5 and only the last 3 items follow
	ep.EXPECT().Send(
		protocol.EncodeCount(5),
		protocol.EncodeMessage("item-2"),
		protocol.EncodeMessage("item-3"),
		protocol.EncodeMessage("item-4"),
	).Return(nil)

	req.NoError(Deliver(ep, domain.Set(items), 3))
}

func TestDeliver_Empty_Set_Sends_Zero_Count(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	ep := mocks.NewMockEndpoint(ctrl)

	ep.EXPECT().Send(protocol.EncodeCount(0)).Return(nil)

	req.NoError(Deliver(ep, domain.Set(nil), 20))
}

func TestDeliver_No_Answer(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	ep := mocks.NewMockEndpoint(ctrl)

	// Then nothing is written
	req.NoError(Deliver(ep, domain.Answer{Shape: domain.NoAnswer}, 20))
}

func TestDeliver_Propagates_Transport_Error(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	ep := mocks.NewMockEndpoint(ctrl)

	ep.EXPECT().Send(gomock.Any()).Return(errors.ErrTransport)

	req.ErrorIs(Deliver(ep, domain.Single("x"), 20), errors.ErrTransport)
}
